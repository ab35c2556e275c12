package model

import (
	"fmt"
	"strings"
)

// Status is the single canonical status of a record. Older readers that
// expect separate lifecycle and fulfillment fields use Status.Legacy.
type Status string

const (
	StatusCreated                Status = "created"
	StatusPendingApproval        Status = "pending_approval"
	StatusPendingSiteApproval    Status = "pending_site_approval"
	StatusPendingCompanyApproval Status = "pending_company_approval"
	StatusPendingFinanceApproval Status = "pending_finance_approval"
	StatusApproved               Status = "approved"
	StatusReturned               Status = "returned"
	StatusRejected               Status = "rejected"
	StatusLinked                 Status = "linked"
	StatusInFulfillment          Status = "in_fulfillment"
	StatusDispatched             Status = "dispatched"
	StatusDelivered              Status = "delivered"
	StatusCancelled              Status = "cancelled"
)

// Category groups statuses by their position in the record lifecycle.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryCreated
	CategoryPending
	CategoryApproved
	CategoryRejected
	CategoryFulfillment
	CategoryClosed
)

// AllStatuses returns every known status.
func AllStatuses() []Status {
	return []Status{
		StatusCreated,
		StatusPendingApproval,
		StatusPendingSiteApproval,
		StatusPendingCompanyApproval,
		StatusPendingFinanceApproval,
		StatusApproved,
		StatusReturned,
		StatusRejected,
		StatusLinked,
		StatusInFulfillment,
		StatusDispatched,
		StatusDelivered,
		StatusCancelled,
	}
}

// Category returns the lifecycle category of s.
func (s Status) Category() Category {
	switch s {
	case StatusCreated:
		return CategoryCreated
	case StatusPendingApproval, StatusPendingSiteApproval, StatusPendingCompanyApproval, StatusPendingFinanceApproval:
		return CategoryPending
	case StatusApproved, StatusLinked:
		return CategoryApproved
	case StatusReturned, StatusRejected:
		return CategoryRejected
	case StatusInFulfillment, StatusDispatched:
		return CategoryFulfillment
	case StatusDelivered, StatusCancelled:
		return CategoryClosed
	}
	return CategoryUnknown
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Category() != CategoryUnknown
}

// ParseStatus converts text into a Status, ignoring case and surrounding spaces.
func ParseStatus(text string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(text)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", text)
	}
	return status, nil
}

// next is the authoritative table of legal status transitions.
func (s Status) next() []Status {
	pending := []Status{StatusPendingApproval, StatusPendingSiteApproval, StatusPendingCompanyApproval, StatusPendingFinanceApproval}
	switch s.Category() {
	case CategoryCreated, CategoryPending:
		return append(pending, StatusApproved, StatusReturned, StatusRejected)
	case CategoryRejected:
		// absorption of a rejected record is enforced by its Phase
		return append(pending, StatusCreated, StatusApproved, StatusReturned, StatusRejected)
	case CategoryApproved:
		if s == StatusApproved {
			return []Status{StatusLinked, StatusInFulfillment, StatusDispatched, StatusCancelled}
		}
		return []Status{StatusInFulfillment, StatusDispatched, StatusCancelled}
	case CategoryFulfillment:
		if s == StatusInFulfillment {
			return []Status{StatusDispatched, StatusCancelled}
		}
		return []Status{StatusDelivered, StatusCancelled}
	case CategoryClosed, CategoryUnknown:
	}
	return nil
}

// CanTransition reports whether a record may move from status from to status to.
// An empty from denotes a record that has not been persisted yet.
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if from == "" {
		switch to.Category() {
		case CategoryCreated, CategoryPending:
			return true
		}
		return false
	}
	for _, candidate := range from.next() {
		if candidate == to {
			return true
		}
	}
	return false
}

// LegacyStatus is the dual lifecycle/fulfillment view kept for older readers.
type LegacyStatus struct {
	Lifecycle   string `json:"lifecycleStatus"`
	Fulfillment string `json:"fulfillmentStatus,omitempty"`
}

// Legacy derives the lifecycle/fulfillment pair from the canonical status.
func (s Status) Legacy() LegacyStatus {
	switch s.Category() {
	case CategoryCreated:
		return LegacyStatus{Lifecycle: "created"}
	case CategoryPending:
		return LegacyStatus{Lifecycle: "pending"}
	case CategoryRejected:
		return LegacyStatus{Lifecycle: "rejected"}
	case CategoryApproved:
		return LegacyStatus{Lifecycle: "approved", Fulfillment: "created"}
	case CategoryFulfillment:
		if s == StatusDispatched {
			return LegacyStatus{Lifecycle: "in_fulfillment", Fulfillment: "dispatched"}
		}
		return LegacyStatus{Lifecycle: "in_fulfillment", Fulfillment: "created"}
	case CategoryClosed:
		if s == StatusDelivered {
			return LegacyStatus{Lifecycle: "in_fulfillment", Fulfillment: "delivered"}
		}
		return LegacyStatus{Lifecycle: "cancelled", Fulfillment: "cancelled"}
	case CategoryUnknown:
	}
	return LegacyStatus{Lifecycle: string(s)}
}
