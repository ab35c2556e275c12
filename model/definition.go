package model

import (
	"fmt"
	"sort"
	"time"
)

// RecordType identifies the kind of business record a definition governs.
type RecordType string

const (
	RecordTypeRequisition      RecordType = "requisition"
	RecordTypeRequisitionOrder RecordType = "requisition_order"
	RecordTypePurchaseOrder    RecordType = "purchase_order"
)

// Valid reports whether t is a known record type.
func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeRequisition, RecordTypeRequisitionOrder, RecordTypePurchaseOrder:
		return true
	}
	return false
}

// Stage is a checkpoint requiring a decision by an authorized role.
type Stage struct {
	Key          string  `json:"key" yaml:"key"`
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	AllowedRoles RoleSet `json:"allowedRoles" yaml:"allowedRoles"`
	Order        int     `json:"order" yaml:"order"`
	CanApprove   bool    `json:"canApprove" yaml:"canApprove"`
	CanReject    bool    `json:"canReject" yaml:"canReject"`
	Terminal     bool    `json:"terminal,omitempty" yaml:"terminal,omitempty"`

	// Optional marks a stage that may be skipped. It is stored but never
	// evaluated: no predicate language for skipping exists yet.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`

	// TimeoutHours and EscalateTo are carried for configuration round-trips only.
	TimeoutHours int  `json:"timeoutHours,omitempty" yaml:"timeoutHours,omitempty"`
	EscalateTo   Role `json:"escalateTo,omitempty" yaml:"escalateTo,omitempty"`

	Rejection *RejectionOverride `json:"rejection,omitempty" yaml:"rejection,omitempty"`
}

// Allows reports whether role may act at the stage.
func (s *Stage) Allows(role Role) bool {
	return s.AllowedRoles.Contains(role)
}

// StatusMapping holds the statuses assigned on submission, on approval at
// each stage and on rejection at each stage.
type StatusMapping struct {
	OnSubmission Status            `json:"onSubmission,omitempty" yaml:"onSubmission,omitempty"`
	OnApproval   map[string]Status `json:"onApproval,omitempty" yaml:"onApproval,omitempty"`
	OnRejection  map[string]Status `json:"onRejection,omitempty" yaml:"onRejection,omitempty"`
}

// Definition is an ordered, versioned stage configuration scoped to a
// (tenant, record type) pair.
type Definition struct {
	ID                string             `json:"id" yaml:"id,omitempty"`
	TenantID          string             `json:"tenantId" yaml:"tenantId"`
	RecordType        RecordType         `json:"recordType" yaml:"recordType"`
	Name              string             `json:"name" yaml:"name"`
	Version           int                `json:"version" yaml:"version,omitempty"`
	Active            bool               `json:"active" yaml:"active"`
	Stages            []*Stage           `json:"stages" yaml:"stages"`
	RejectionDefaults *RejectionOverride `json:"rejectionDefaults,omitempty" yaml:"rejectionDefaults,omitempty"`
	StatusMapping     StatusMapping      `json:"statusMapping,omitempty" yaml:"statusMapping,omitempty"`
	CreatedBy         string             `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
	CreatedAt         time.Time          `json:"createdAt,omitempty" yaml:"-"`
}

// Stage returns the stage with key, or nil.
func (d *Definition) Stage(key string) *Stage {
	for _, stage := range d.Stages {
		if stage.Key == key {
			return stage
		}
	}
	return nil
}

// OrderedStages returns the stages sorted by ascending order.
func (d *Definition) OrderedStages() []*Stage {
	ret := make([]*Stage, len(d.Stages))
	copy(ret, d.Stages)
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].Order < ret[j].Order })
	return ret
}

// InitialStage returns the stage with the lowest order.
func (d *Definition) InitialStage() *Stage {
	if len(d.Stages) == 0 {
		return nil
	}
	return d.OrderedStages()[0]
}

// TerminalStage returns the first stage flagged terminal.
func (d *Definition) TerminalStage() *Stage {
	for _, stage := range d.Stages {
		if stage.Terminal {
			return stage
		}
	}
	return nil
}

// NextStage returns the stage following key in ascending order, or nil when
// key is terminal, unknown or last. Optional stages are not skipped.
func (d *Definition) NextStage(key string) *Stage {
	current := d.Stage(key)
	if current == nil || current.Terminal {
		return nil
	}
	var next *Stage
	for _, stage := range d.Stages {
		if stage.Order <= current.Order {
			continue
		}
		if next == nil || stage.Order < next.Order {
			next = stage
		}
	}
	return next
}

// SubmissionStatus returns the status assigned when a record is submitted.
func (d *Definition) SubmissionStatus() Status {
	if d.StatusMapping.OnSubmission != "" {
		return d.StatusMapping.OnSubmission
	}
	return StatusPendingApproval
}

// ApprovalStatus returns the status assigned after approval at stage.
func (d *Definition) ApprovalStatus(stage *Stage) Status {
	if status, ok := d.StatusMapping.OnApproval[stage.Key]; ok && status != "" {
		return status
	}
	if stage.Terminal {
		return StatusApproved
	}
	return StatusPendingApproval
}

// Clone returns a deep copy of the definition.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	ret := *d
	ret.Stages = make([]*Stage, len(d.Stages))
	for i, stage := range d.Stages {
		aStage := *stage
		aStage.AllowedRoles = append(RoleSet(nil), stage.AllowedRoles...)
		aStage.Rejection = stage.Rejection.clone()
		ret.Stages[i] = &aStage
	}
	ret.RejectionDefaults = d.RejectionDefaults.clone()
	ret.StatusMapping = StatusMapping{
		OnSubmission: d.StatusMapping.OnSubmission,
		OnApproval:   cloneStatuses(d.StatusMapping.OnApproval),
		OnRejection:  cloneStatuses(d.StatusMapping.OnRejection),
	}
	return &ret
}

func cloneStatuses(src map[string]Status) map[string]Status {
	if src == nil {
		return nil
	}
	ret := make(map[string]Status, len(src))
	for k, v := range src {
		ret[k] = v
	}
	return ret
}

func (o *RejectionOverride) clone() *RejectionOverride {
	if o == nil {
		return nil
	}
	ret := *o
	if o.AllowedReasonCodes != nil {
		ret.AllowedReasonCodes = append([]string{}, o.AllowedReasonCodes...)
	}
	if o.NotifyRoles != nil {
		ret.NotifyRoles = append([]Role{}, o.NotifyRoles...)
	}
	if o.VisibleTo != nil {
		ret.VisibleTo = append([]Role{}, o.VisibleTo...)
	}
	if o.ResubmitRoles != nil {
		ret.ResubmitRoles = append([]Role{}, o.ResubmitRoles...)
	}
	return &ret
}

// Validate performs a structural validation of the definition. The returned
// slice is empty when the definition is sound.
func (d *Definition) Validate() []error {
	var issues []error
	if d.TenantID == "" {
		issues = append(issues, fmt.Errorf("tenantId is empty"))
	}
	if !d.RecordType.Valid() {
		issues = append(issues, fmt.Errorf("unknown record type %q", d.RecordType))
	}
	if len(d.Stages) == 0 {
		issues = append(issues, fmt.Errorf("stage list is empty"))
		return issues
	}

	keys := map[string]bool{}
	orders := map[int]string{}
	var terminals []*Stage
	maxOrder, ordered := 0, false
	for i, stage := range d.Stages {
		if stage == nil {
			issues = append(issues, fmt.Errorf("stage #%d is nil", i))
			continue
		}
		if stage.Key == "" {
			issues = append(issues, fmt.Errorf("stage #%d has empty key", i))
		} else if keys[stage.Key] {
			issues = append(issues, fmt.Errorf("duplicate stage key %s", stage.Key))
		}
		keys[stage.Key] = true
		if other, ok := orders[stage.Order]; ok {
			issues = append(issues, fmt.Errorf("stage %s reuses order %d of stage %s", stage.Key, stage.Order, other))
		}
		orders[stage.Order] = stage.Key
		if !ordered || stage.Order > maxOrder {
			maxOrder, ordered = stage.Order, true
		}
		if stage.Terminal {
			terminals = append(terminals, stage)
		}
		if len(stage.AllowedRoles) == 0 {
			issues = append(issues, fmt.Errorf("stage %s has no allowed roles", stage.Key))
		}
		for _, role := range stage.AllowedRoles {
			if !role.Valid() {
				issues = append(issues, fmt.Errorf("stage %s: unknown role %q", stage.Key, role))
			}
		}
		if stage.EscalateTo != "" && !stage.EscalateTo.Valid() {
			issues = append(issues, fmt.Errorf("stage %s: unknown escalation role %q", stage.Key, stage.EscalateTo))
		}
		issues = append(issues, stage.Rejection.validate("stage "+stage.Key)...)
	}

	switch len(terminals) {
	case 0:
		issues = append(issues, fmt.Errorf("no terminal stage"))
	case 1:
		if terminals[0].Order != maxOrder {
			issues = append(issues, fmt.Errorf("terminal stage %s must have the highest order", terminals[0].Key))
		}
	default:
		issues = append(issues, fmt.Errorf("%d terminal stages, expected exactly one", len(terminals)))
	}

	issues = append(issues, d.RejectionDefaults.validate("rejectionDefaults")...)
	issues = append(issues, d.validateStatusMapping(keys)...)
	return issues
}

func (d *Definition) validateStatusMapping(keys map[string]bool) []error {
	var issues []error
	if status := d.StatusMapping.OnSubmission; status != "" {
		switch status.Category() {
		case CategoryCreated, CategoryPending:
		default:
			issues = append(issues, fmt.Errorf("statusMapping.onSubmission: %q is not a created or pending status", status))
		}
	}
	for key, status := range d.StatusMapping.OnApproval {
		stage := d.Stage(key)
		if !keys[key] || stage == nil {
			issues = append(issues, fmt.Errorf("statusMapping.onApproval refers to unknown stage %s", key))
			continue
		}
		expect := CategoryPending
		if stage.Terminal {
			expect = CategoryApproved
		}
		if status.Category() != expect {
			issues = append(issues, fmt.Errorf("statusMapping.onApproval[%s]: %q is not allowed", key, status))
		}
	}
	for key, status := range d.StatusMapping.OnRejection {
		if !keys[key] {
			issues = append(issues, fmt.Errorf("statusMapping.onRejection refers to unknown stage %s", key))
			continue
		}
		if status.Category() != CategoryRejected {
			issues = append(issues, fmt.Errorf("statusMapping.onRejection[%s]: %q is not a rejection status", key, status))
		}
	}
	return issues
}

func (o *RejectionOverride) validate(location string) []error {
	if o == nil {
		return nil
	}
	var issues []error
	if o.RemarksMaxLength != nil && *o.RemarksMaxLength <= 0 {
		issues = append(issues, fmt.Errorf("%s: remarksMaxLength must be > 0", location))
	}
	if o.ResubmissionStrategy != nil && !o.ResubmissionStrategy.Valid() {
		issues = append(issues, fmt.Errorf("%s: unknown resubmission strategy %q", location, *o.ResubmissionStrategy))
	}
	if o.RejectedStatus != nil && o.RejectedStatus.Category() != CategoryRejected {
		issues = append(issues, fmt.Errorf("%s: %q is not a rejection status", location, *o.RejectedStatus))
	}
	for _, roles := range [][]Role{o.NotifyRoles, o.VisibleTo, o.ResubmitRoles} {
		for _, role := range roles {
			if !role.Valid() {
				issues = append(issues, fmt.Errorf("%s: unknown role %q", location, role))
			}
		}
	}
	return issues
}
