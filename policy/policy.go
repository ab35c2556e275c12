package policy

import (
	"fmt"

	"github.com/viant/procureflow/model"
)

// DefaultRemarksMaxLength caps free-text remarks when no layer sets a limit.
const DefaultRemarksMaxLength = 1000

// SystemDefault returns the hard-coded base layer: rejection is terminal and
// stops later stages, a reason code is mandatory, remarks are optional, the
// requester is notified and may resubmit by creating a new record.
func SystemDefault() model.RejectionPolicy {
	return model.RejectionPolicy{
		TerminalOnReject:     true,
		StopFurtherStages:    true,
		RequireReasonCode:    true,
		RequireRemarks:       false,
		RemarksMaxLength:     DefaultRemarksMaxLength,
		NotifyRoles:          []model.Role{},
		NotifyRequester:      true,
		VisibleTo:            []model.Role{model.RoleRequester},
		ResubmissionStrategy: model.ResubmitCreateNewRecord,
		AllowResubmission:    true,
		ResubmitRoles:        []model.Role{model.RoleRequester},
		RejectedStatus:       model.StatusRejected,
	}
}

// Overlay returns base with every field explicitly set in override applied.
// Unset fields inherit from base; they never reset to the system default.
func Overlay(base model.RejectionPolicy, override *model.RejectionOverride) model.RejectionPolicy {
	ret := clone(base)
	if override == nil {
		return ret
	}
	if override.TerminalOnReject != nil {
		ret.TerminalOnReject = *override.TerminalOnReject
	}
	if override.StopFurtherStages != nil {
		ret.StopFurtherStages = *override.StopFurtherStages
	}
	if override.RequireReasonCode != nil {
		ret.RequireReasonCode = *override.RequireReasonCode
	}
	if override.RequireRemarks != nil {
		ret.RequireRemarks = *override.RequireRemarks
	}
	if override.RemarksMaxLength != nil {
		ret.RemarksMaxLength = *override.RemarksMaxLength
	}
	if override.AllowedReasonCodes != nil {
		ret.AllowedReasonCodes = append([]string{}, override.AllowedReasonCodes...)
	}
	if override.NotifyRoles != nil {
		ret.NotifyRoles = append([]model.Role{}, override.NotifyRoles...)
	}
	if override.NotifyRequester != nil {
		ret.NotifyRequester = *override.NotifyRequester
	}
	if override.VisibleTo != nil {
		ret.VisibleTo = append([]model.Role{}, override.VisibleTo...)
	}
	if override.ResubmissionStrategy != nil {
		ret.ResubmissionStrategy = *override.ResubmissionStrategy
	}
	if override.AllowResubmission != nil {
		ret.AllowResubmission = *override.AllowResubmission
	}
	if override.ResubmitRoles != nil {
		ret.ResubmitRoles = append([]model.Role{}, override.ResubmitRoles...)
	}
	if override.RejectedStatus != nil {
		ret.RejectedStatus = *override.RejectedStatus
	}
	return ret
}

// Merge folds layers left to right over the system default.
func Merge(layers ...*model.RejectionOverride) model.RejectionPolicy {
	ret := SystemDefault()
	for _, layer := range layers {
		ret = Overlay(ret, layer)
	}
	return ret
}

// Resolve computes the effective rejection policy for stageKey of definition.
// Layers, lowest precedence first: system default, definition defaults, the
// definition's onRejection status mapping for the stage, the stage override.
func Resolve(definition *model.Definition, stageKey string) (*model.RejectionPolicy, error) {
	if definition == nil {
		return nil, fmt.Errorf("%w: definition was nil", model.ErrNoActiveWorkflow)
	}
	stage := definition.Stage(stageKey)
	if stage == nil {
		return nil, fmt.Errorf("%w: stage %q is not part of definition %s", model.ErrInvalidTransition, stageKey, definition.ID)
	}
	var mapped *model.RejectionOverride
	if status, ok := definition.StatusMapping.OnRejection[stageKey]; ok && status != "" {
		mapped = &model.RejectionOverride{RejectedStatus: &status}
	}
	ret := Merge(definition.RejectionDefaults, mapped, stage.Rejection)
	return &ret, nil
}

func clone(p model.RejectionPolicy) model.RejectionPolicy {
	ret := p
	if p.AllowedReasonCodes != nil {
		ret.AllowedReasonCodes = append([]string{}, p.AllowedReasonCodes...)
	}
	ret.NotifyRoles = append([]model.Role{}, p.NotifyRoles...)
	ret.VisibleTo = append([]model.Role{}, p.VisibleTo...)
	ret.ResubmitRoles = append([]model.Role{}, p.ResubmitRoles...)
	return ret
}
