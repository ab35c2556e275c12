package model

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the engine. Callers should detect them with
// errors.Is; every returned error wraps exactly one of them.
var (
	ErrRoleNotAllowedAtStage   = errors.New("role not allowed at stage")
	ErrInvalidTransition       = errors.New("invalid transition")
	ErrReasonCodeRequired      = errors.New("reason code required")
	ErrReasonCodeNotAllowed    = errors.New("reason code not allowed")
	ErrRemarksRequired         = errors.New("remarks required")
	ErrRemarksTooLong          = errors.New("remarks too long")
	ErrResubmissionNotAllowed  = errors.New("resubmission not allowed")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrNoActiveWorkflow        = errors.New("no active workflow")
	ErrRecordNotFound          = errors.New("record not found")
	ErrDefinitionNotFound      = errors.New("definition not found")
	ErrStaleState              = errors.New("stale state")
	ErrInvalidDefinition       = errors.New("invalid definition")
	ErrFanOutDisabled          = errors.New("fan-out disabled for tenant")
)

// Kind classifies an error for callers deciding how to react to it.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindConfiguration:
		return "configuration"
	case KindInternal:
	}
	return "internal"
}

var taxonomy = []struct {
	err  error
	code string
	kind Kind
}{
	{ErrRoleNotAllowedAtStage, "RoleNotAllowedAtStage", KindValidation},
	{ErrInvalidTransition, "InvalidTransition", KindValidation},
	{ErrReasonCodeRequired, "ReasonCodeRequired", KindValidation},
	{ErrReasonCodeNotAllowed, "ReasonCodeNotAllowed", KindValidation},
	{ErrRemarksRequired, "RemarksRequired", KindValidation},
	{ErrRemarksTooLong, "RemarksTooLong", KindValidation},
	{ErrResubmissionNotAllowed, "ResubmissionNotAllowed", KindValidation},
	{ErrInvalidStatusTransition, "InvalidStatusTransition", KindValidation},
	{ErrNoActiveWorkflow, "NoActiveWorkflow", KindNotFound},
	{ErrRecordNotFound, "RecordNotFound", KindNotFound},
	{ErrDefinitionNotFound, "DefinitionNotFound", KindNotFound},
	{ErrStaleState, "StaleState", KindConflict},
	{ErrInvalidDefinition, "InvalidDefinition", KindConfiguration},
	{ErrFanOutDisabled, "FanOutDisabled", KindConfiguration},
}

// CodeOf returns the stable code of err, e.g. "RoleNotAllowedAtStage", or
// "Internal" when err does not wrap a known sentinel.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range taxonomy {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return "Internal"
}

// KindOf returns the taxonomy kind of err.
func KindOf(err error) Kind {
	for _, entry := range taxonomy {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}

// DefinitionError aggregates every issue found while validating a definition.
type DefinitionError struct {
	Issues []error
}

func (e *DefinitionError) Error() string {
	messages := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		messages = append(messages, issue.Error())
	}
	return ErrInvalidDefinition.Error() + ": " + strings.Join(messages, "; ")
}

func (e *DefinitionError) Unwrap() error { return ErrInvalidDefinition }
