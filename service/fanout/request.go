package fanout

import (
	"time"

	"github.com/viant/procureflow/model"
)

// Skip codes for records that are not eligible for fan-out.
const (
	CodeMissingPartner = "MissingPartner"
	CodeTenantMismatch = "TenantMismatch"
	CodeNotApproved    = "NotApproved"
)

// Request asks for one linked artifact per fulfillment partner.
type Request struct {
	TenantID          string
	RecordIDs         []string
	ExternalRefNumber string
	ExternalRefDate   time.Time
	Actor             model.Actor
}

// Partition is the set of eligible records sharing a fulfillment partner.
type Partition struct {
	PartnerID string   `json:"partnerId"`
	RecordIDs []string `json:"recordIds"`
}

// Artifact is a created downstream artifact and the records linked to it.
type Artifact struct {
	ID        string   `json:"id"`
	PartnerID string   `json:"partnerId"`
	RecordIDs []string `json:"recordIds"`
	Linked    []string `json:"linked"`
}

// Failure reports a partition whose artifact could not be created, or a
// member that could not be relinked to a created artifact.
type Failure struct {
	PartnerID  string `json:"partition"`
	ArtifactID string `json:"artifactId,omitempty"`
	RecordID   string `json:"recordId,omitempty"`
	Code       string `json:"error"`
	Error      error  `json:"-"`
}

// Skip reports an ineligible record.
type Skip struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// Outcome is the mixed result of a fan-out call.
type Outcome struct {
	Artifacts []*Artifact `json:"artifactsCreated"`
	Failures  []Failure   `json:"failures"`
	Skipped   []Skip      `json:"skipped,omitempty"`
}
