package approval

import (
	"time"

	"github.com/viant/procureflow/model"
)

// Item is one record awaiting a decision.
type Item struct {
	RecordID   string           `json:"recordId"`
	TenantID   string           `json:"tenantId"`
	RecordType model.RecordType `json:"recordType"`
	StageKey   string           `json:"stageKey"`
	StageName  string           `json:"stageName,omitempty"`
	Status     model.Status     `json:"status"`
	GroupKey   string           `json:"groupKey,omitempty"`
	PartnerID  string           `json:"partnerId,omitempty"`
	Revision   int64            `json:"revision"`
	CanApprove bool             `json:"canApprove"`
	CanReject  bool             `json:"canReject"`
	WaitingFor time.Duration    `json:"waitingFor"`
}

// Decision is an approver's verdict on an Item. Revision, when set, must
// match the stored record.
type Decision struct {
	RecordID   string      `json:"recordId"`
	Actor      model.Actor `json:"actor"`
	Approved   bool        `json:"approved"`
	ReasonCode string      `json:"reasonCode,omitempty"`
	Remarks    string      `json:"remarks,omitempty"`
	Revision   int64       `json:"revision,omitempty"`
}
