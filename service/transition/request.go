package transition

import (
	"github.com/viant/procureflow/model"
)

// SubmitRequest creates a record at the initial stage of the active definition.
type SubmitRequest struct {
	// RecordID is optional; a new id is generated when empty.
	RecordID    string
	TenantID    string
	RecordType  model.RecordType
	RequesterID string
	PartnerID   string
	GroupKey    string
}

// Request addresses one approve, reject or resubmit action.
type Request struct {
	RecordID string
	Actor    model.Actor

	// ReasonCode and Remarks are read by Reject only.
	ReasonCode string
	Remarks    string

	// ExpectedStage and ExpectedRevision are optional preconditions; a
	// mismatch with the stored record fails with model.ErrStaleState.
	ExpectedStage    string
	ExpectedRevision int64
}

// FulfillmentRequest moves an approved record along its fulfillment statuses.
type FulfillmentRequest struct {
	RecordID string
	Actor    model.Actor
	Status   model.Status

	// ArtifactID is stored as the linked artifact when Status is linked.
	ArtifactID       string
	ExpectedRevision int64
}

// Resubmission describes whether and how a rejected record may re-enter
// the workflow.
type Resubmission struct {
	Allowed  bool                       `json:"allowed"`
	Strategy model.ResubmissionStrategy `json:"strategy,omitempty"`
	Roles    []model.Role               `json:"roles,omitempty"`
}

// Result reports a committed transition.
type Result struct {
	Record    *model.Record `json:"record"`
	FromStage string        `json:"fromStage,omitempty"`

	// Completed is set when the record reached APPROVED_TERMINAL.
	Completed bool `json:"completed,omitempty"`

	// Rejection outcome.
	Policy       *model.RejectionPolicy `json:"policy,omitempty"`
	Notify       model.RoleSet          `json:"notify,omitempty"`
	VisibleTo    []model.Role           `json:"visibleTo,omitempty"`
	Resubmission *Resubmission          `json:"resubmission,omitempty"`
}
