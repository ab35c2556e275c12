package model

// ResubmissionStrategy controls how a rejected record re-enters the workflow.
type ResubmissionStrategy string

const (
	ResubmitCreateNewRecord   ResubmissionStrategy = "CREATE_NEW_RECORD"
	ResubmitRestartSameRecord ResubmissionStrategy = "RESTART_SAME_RECORD"
)

// Valid reports whether s is a known strategy.
func (s ResubmissionStrategy) Valid() bool {
	switch s {
	case ResubmitCreateNewRecord, ResubmitRestartSameRecord:
		return true
	}
	return false
}

// RejectionOverride is one layer of rejection behaviour. Only fields that are
// set override lower layers: a nil pointer or nil slice means inherit, a
// non-nil empty slice means "set to empty".
type RejectionOverride struct {
	TerminalOnReject     *bool                 `json:"isTerminalOnReject,omitempty" yaml:"isTerminalOnReject,omitempty"`
	StopFurtherStages    *bool                 `json:"stopFurtherStagesOnReject,omitempty" yaml:"stopFurtherStagesOnReject,omitempty"`
	RequireReasonCode    *bool                 `json:"requireReasonCode,omitempty" yaml:"requireReasonCode,omitempty"`
	RequireRemarks       *bool                 `json:"requireRemarks,omitempty" yaml:"requireRemarks,omitempty"`
	RemarksMaxLength     *int                  `json:"remarksMaxLength,omitempty" yaml:"remarksMaxLength,omitempty"`
	AllowedReasonCodes   []string              `json:"allowedReasonCodes,omitempty" yaml:"allowedReasonCodes,omitempty"`
	NotifyRoles          []Role                `json:"notifyRoles,omitempty" yaml:"notifyRoles,omitempty"`
	NotifyRequester      *bool                 `json:"notifyRequester,omitempty" yaml:"notifyRequester,omitempty"`
	VisibleTo            []Role                `json:"visibleTo,omitempty" yaml:"visibleTo,omitempty"`
	ResubmissionStrategy *ResubmissionStrategy `json:"resubmissionStrategy,omitempty" yaml:"resubmissionStrategy,omitempty"`
	AllowResubmission    *bool                 `json:"allowResubmission,omitempty" yaml:"allowResubmission,omitempty"`
	ResubmitRoles        []Role                `json:"resubmitRoles,omitempty" yaml:"resubmitRoles,omitempty"`
	RejectedStatus       *Status               `json:"rejectedStatus,omitempty" yaml:"rejectedStatus,omitempty"`
}

// IsEmpty reports whether no field is set.
func (o *RejectionOverride) IsEmpty() bool {
	if o == nil {
		return true
	}
	return o.TerminalOnReject == nil && o.StopFurtherStages == nil && o.RequireReasonCode == nil &&
		o.RequireRemarks == nil && o.RemarksMaxLength == nil && o.AllowedReasonCodes == nil &&
		o.NotifyRoles == nil && o.NotifyRequester == nil && o.VisibleTo == nil &&
		o.ResubmissionStrategy == nil && o.AllowResubmission == nil && o.ResubmitRoles == nil &&
		o.RejectedStatus == nil
}

// RejectionPolicy is the fully resolved rejection behaviour for one stage.
// It is computed at decision time and never persisted.
type RejectionPolicy struct {
	TerminalOnReject     bool                 `json:"isTerminalOnReject" yaml:"isTerminalOnReject"`
	StopFurtherStages    bool                 `json:"stopFurtherStagesOnReject" yaml:"stopFurtherStagesOnReject"`
	RequireReasonCode    bool                 `json:"requireReasonCode" yaml:"requireReasonCode"`
	RequireRemarks       bool                 `json:"requireRemarks" yaml:"requireRemarks"`
	RemarksMaxLength     int                  `json:"remarksMaxLength" yaml:"remarksMaxLength"`
	AllowedReasonCodes   []string             `json:"allowedReasonCodes,omitempty" yaml:"allowedReasonCodes,omitempty"`
	NotifyRoles          []Role               `json:"notifyRoles" yaml:"notifyRoles"`
	NotifyRequester      bool                 `json:"notifyRequester" yaml:"notifyRequester"`
	VisibleTo            []Role               `json:"visibleTo" yaml:"visibleTo"`
	ResubmissionStrategy ResubmissionStrategy `json:"resubmissionStrategy" yaml:"resubmissionStrategy"`
	AllowResubmission    bool                 `json:"allowResubmission" yaml:"allowResubmission"`
	ResubmitRoles        []Role               `json:"resubmitRoles" yaml:"resubmitRoles"`
	RejectedStatus       Status               `json:"rejectedStatus" yaml:"rejectedStatus"`
}

// ReasonCodeAllowed reports whether code passes the allow-list; an empty
// allow-list accepts any code.
func (p *RejectionPolicy) ReasonCodeAllowed(code string) bool {
	if len(p.AllowedReasonCodes) == 0 {
		return true
	}
	for _, candidate := range p.AllowedReasonCodes {
		if candidate == code {
			return true
		}
	}
	return false
}

// Recipients returns the roles to notify: configured roles plus the
// requester when NotifyRequester is set.
func (p *RejectionPolicy) Recipients() RoleSet {
	recipients := RoleSet(p.NotifyRoles).Union()
	if p.NotifyRequester {
		recipients = recipients.Union(RoleRequester)
	}
	return recipients
}
