package transition

import (
	"github.com/viant/procureflow/model"
)

// Event type names carried in event.Context.
const (
	EventTransition   = "transition"
	EventNotification = "notification"
)

// Event describes a committed record change.
type Event struct {
	RecordID         string           `json:"recordId"`
	TenantID         string           `json:"tenantId"`
	RecordType       model.RecordType `json:"recordType"`
	Action           model.Action     `json:"action"`
	FromStage        string           `json:"fromStage,omitempty"`
	ToStage          string           `json:"toStage,omitempty"`
	Phase            model.Phase      `json:"phase"`
	Status           model.Status     `json:"status"`
	Revision         int64            `json:"revision"`
	ActorID          string           `json:"actorId"`
	ActorRole        model.Role       `json:"actorRole,omitempty"`
	PartnerID        string           `json:"partnerId,omitempty"`
	LinkedArtifactID string           `json:"linkedArtifactId,omitempty"`
}

// Notification asks the notification channel to inform roles of a rejection.
type Notification struct {
	RecordID    string        `json:"recordId"`
	TenantID    string        `json:"tenantId"`
	StageKey    string        `json:"stageKey"`
	RequesterID string        `json:"requesterId"`
	Recipients  model.RoleSet `json:"recipients"`
	VisibleTo   []model.Role  `json:"visibleTo"`
	ReasonCode  string        `json:"reasonCode,omitempty"`
	Remarks     string        `json:"remarks,omitempty"`
}
