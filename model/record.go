package model

import "time"

// Phase is the position of a record relative to its definition: positioned at
// a stage, or absorbed into one of the two final states.
type Phase string

const (
	PhaseInStage          Phase = "IN_STAGE"
	PhaseApprovedTerminal Phase = "APPROVED_TERMINAL"
	PhaseRejected         Phase = "REJECTED"
)

// Absorbing reports whether no further approve/reject is possible.
func (p Phase) Absorbing() bool {
	switch p {
	case PhaseApprovedTerminal, PhaseRejected:
		return true
	case PhaseInStage:
	}
	return false
}

// Action is an audited operation on a record.
type Action string

const (
	ActionSubmit      Action = "submit"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionResubmit    Action = "resubmit"
	ActionLink        Action = "link"
	ActionFulfillment Action = "fulfillment"
)

// Actor identifies who performs an action and in which role.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// StageAudit stamps one action on a record.
type StageAudit struct {
	StageKey   string    `json:"stageKey,omitempty"`
	Action     Action    `json:"action"`
	ActorID    string    `json:"actorId"`
	ActorRole  Role      `json:"actorRole,omitempty"`
	At         time.Time `json:"at"`
	ReasonCode string    `json:"reasonCode,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
	Status     Status    `json:"status"`
}

// Record is a business record (requisition, derived order or purchase order)
// moved through a definition.
type Record struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenantId"`
	RecordType        RecordType `json:"recordType"`
	DefinitionID      string     `json:"definitionId"`
	DefinitionVersion int        `json:"definitionVersion"`

	Phase    Phase  `json:"phase"`
	StageKey string `json:"stageKey,omitempty"`
	Status   Status `json:"status"`
	// Revision increases on every write; writers compare-and-set on it.
	Revision int64 `json:"revision"`

	RequesterID string `json:"requesterId"`
	PartnerID   string `json:"partnerId,omitempty"`
	GroupKey    string `json:"groupKey,omitempty"`

	LinkedArtifactID string       `json:"linkedArtifactId,omitempty"`
	RejectedAtStage  string       `json:"rejectedAtStage,omitempty"`
	VisibleTo        []Role       `json:"visibleTo,omitempty"`
	ResubmittedFrom  string       `json:"resubmittedFrom,omitempty"`
	Resubmissions    int          `json:"resubmissions,omitempty"`
	Audit            []StageAudit `json:"audit,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Legacy returns the derived lifecycle/fulfillment view of the record status.
func (r *Record) Legacy() LegacyStatus {
	return r.Status.Legacy()
}

// LastAudit returns the most recent audit entry for stageKey and action.
func (r *Record) LastAudit(stageKey string, action Action) *StageAudit {
	for i := len(r.Audit) - 1; i >= 0; i-- {
		if entry := &r.Audit[i]; entry.StageKey == stageKey && entry.Action == action {
			return entry
		}
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	ret := *r
	if r.VisibleTo != nil {
		ret.VisibleTo = append([]Role{}, r.VisibleTo...)
	}
	if r.Audit != nil {
		ret.Audit = append([]StageAudit{}, r.Audit...)
	}
	return &ret
}
