package registry

import (
	"fmt"
	"strings"

	"github.com/viant/procureflow/internal/yml"
	"github.com/viant/procureflow/model"
	"gopkg.in/yaml.v3"
)

// DecodeYAML decodes a definition from YAML. Keys match case-insensitively.
// Malformed values and structural violations are returned together as a
// *model.DefinitionError.
func DecodeYAML(encoded []byte) (*model.Definition, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, &model.DefinitionError{Issues: []error{err}}
	}
	root := yml.Root(&node)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, &model.DefinitionError{Issues: []error{fmt.Errorf("definition must be a mapping")}}
	}
	d := &decoder{}
	definition := d.definition(root)
	issues := append(d.issues, definition.Validate()...)
	if len(issues) > 0 {
		return nil, &model.DefinitionError{Issues: issues}
	}
	return definition, nil
}

type decoder struct {
	issues []error
}

func (d *decoder) fail(location string, err error) {
	d.issues = append(d.issues, fmt.Errorf("%s: %w", location, err))
}

func (d *decoder) definition(node *yml.Node) *model.Definition {
	ret := &model.Definition{}
	_ = node.Pairs(func(key string, value *yml.Node) error {
		switch key {
		case "id":
			ret.ID = d.text(key, value)
		case "tenantid", "tenant":
			ret.TenantID = d.text(key, value)
		case "recordtype":
			ret.RecordType = model.RecordType(strings.ToLower(d.text(key, value)))
		case "name":
			ret.Name = d.text(key, value)
		case "version":
			ret.Version = d.int(key, value)
		case "active", "isactive":
			ret.Active = d.bool(key, value)
		case "createdby":
			ret.CreatedBy = d.text(key, value)
		case "stages":
			ret.Stages = d.stages(value)
		case "rejectiondefaults", "rejectionpolicy":
			ret.RejectionDefaults = d.override(key, value)
		case "statusmapping":
			ret.StatusMapping = d.statusMapping(value)
		}
		return nil
	})
	return ret
}

func (d *decoder) stages(node *yml.Node) []*model.Stage {
	var ret []*model.Stage
	err := node.Items(func(index int, item *yml.Node) error {
		location := fmt.Sprintf("stages[%d]", index)
		stage := &model.Stage{}
		if err := item.Pairs(func(key string, value *yml.Node) error {
			switch key {
			case "key":
				stage.Key = d.text(location+".key", value)
				location = "stage " + stage.Key
			case "name":
				stage.Name = d.text(location+".name", value)
			case "allowedroles", "roles":
				stage.AllowedRoles = d.roles(location+".allowedRoles", value)
			case "order":
				stage.Order = d.int(location+".order", value)
			case "canapprove":
				stage.CanApprove = d.bool(location+".canApprove", value)
			case "canreject":
				stage.CanReject = d.bool(location+".canReject", value)
			case "terminal", "isterminal":
				stage.Terminal = d.bool(location+".terminal", value)
			case "optional", "skippable":
				stage.Optional = d.bool(location+".optional", value)
			case "timeouthours":
				stage.TimeoutHours = d.int(location+".timeoutHours", value)
			case "escalateto":
				if roles := d.roles(location+".escalateTo", value); len(roles) > 0 {
					stage.EscalateTo = roles[0]
				}
			case "rejection", "rejectionpolicy":
				stage.Rejection = d.override(location+".rejection", value)
			}
			return nil
		}); err != nil {
			d.fail(location, err)
		}
		ret = append(ret, stage)
		return nil
	})
	if err != nil {
		d.fail("stages", err)
	}
	return ret
}

func (d *decoder) override(location string, node *yml.Node) *model.RejectionOverride {
	ret := &model.RejectionOverride{}
	err := node.Pairs(func(key string, value *yml.Node) error {
		at := location + "." + key
		switch key {
		case "isterminalonreject", "terminalonreject":
			ret.TerminalOnReject = d.boolPtr(at, value)
		case "stopfurtherstagesonreject", "stopfurtherstages":
			ret.StopFurtherStages = d.boolPtr(at, value)
		case "requirereasoncode":
			ret.RequireReasonCode = d.boolPtr(at, value)
		case "requireremarks":
			ret.RequireRemarks = d.boolPtr(at, value)
		case "remarksmaxlength":
			length := d.int(at, value)
			ret.RemarksMaxLength = &length
		case "allowedreasoncodes":
			codes, err := value.Strings()
			if err != nil {
				d.fail(at, err)
			}
			ret.AllowedReasonCodes = codes
		case "notifyroles":
			ret.NotifyRoles = d.roles(at, value)
		case "notifyrequester", "notifyrequestor":
			ret.NotifyRequester = d.boolPtr(at, value)
		case "visibleto":
			ret.VisibleTo = d.roles(at, value)
		case "resubmissionstrategy":
			strategy := model.ResubmissionStrategy(d.text(at, value))
			ret.ResubmissionStrategy = &strategy
		case "allowresubmission":
			ret.AllowResubmission = d.boolPtr(at, value)
		case "resubmitroles":
			ret.ResubmitRoles = d.roles(at, value)
		case "rejectedstatus":
			status := d.status(at, value)
			ret.RejectedStatus = &status
		}
		return nil
	})
	if err != nil {
		d.fail(location, err)
	}
	return ret
}

func (d *decoder) statusMapping(node *yml.Node) model.StatusMapping {
	ret := model.StatusMapping{}
	err := node.Pairs(func(key string, value *yml.Node) error {
		switch key {
		case "onsubmission":
			ret.OnSubmission = d.status("statusMapping.onSubmission", value)
		case "onapproval":
			ret.OnApproval = d.stageStatuses("statusMapping.onApproval", value)
		case "onrejection":
			ret.OnRejection = d.stageStatuses("statusMapping.onRejection", value)
		}
		return nil
	})
	if err != nil {
		d.fail("statusMapping", err)
	}
	return ret
}

// stageStatuses keeps stage keys as written; Pairs lower-cases them.
func (d *decoder) stageStatuses(location string, node *yml.Node) map[string]model.Status {
	if node.Kind != yaml.MappingNode {
		d.fail(location, fmt.Errorf("line %d: expected mapping", node.Line))
		return nil
	}
	ret := map[string]model.Status{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		ret[key] = d.status(location+"["+key+"]", (*yml.Node)(node.Content[i+1]))
	}
	return ret
}

func (d *decoder) text(location string, node *yml.Node) string {
	text, err := node.Text()
	if err != nil {
		d.fail(location, err)
	}
	return text
}

func (d *decoder) int(location string, node *yml.Node) int {
	value, err := node.Int()
	if err != nil {
		d.fail(location, err)
	}
	return value
}

func (d *decoder) bool(location string, node *yml.Node) bool {
	value, err := node.Bool()
	if err != nil {
		d.fail(location, err)
	}
	return value
}

func (d *decoder) boolPtr(location string, node *yml.Node) *bool {
	value := d.bool(location, node)
	return &value
}

func (d *decoder) status(location string, node *yml.Node) model.Status {
	status, err := model.ParseStatus(d.text(location, node))
	if err != nil {
		d.fail(location, err)
	}
	return status
}

func (d *decoder) roles(location string, node *yml.Node) []model.Role {
	texts, err := node.Strings()
	if err != nil {
		d.fail(location, err)
		return nil
	}
	ret := make([]model.Role, 0, len(texts))
	for _, text := range texts {
		role, err := model.ParseRole(text)
		if err != nil {
			d.fail(location, err)
			continue
		}
		ret = append(ret, role)
	}
	return ret
}
