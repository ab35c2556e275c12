package dao

// Well-known list parameter names.
const (
	ParamTenantID   = "TenantID"
	ParamRecordType = "RecordType"
	ParamGroupKey   = "GroupKey"
	ParamPartnerID  = "PartnerID"
	ParamStatus     = "Status"
	ParamIDs        = "IDs"
)

// Parameter narrows a List call; a []string value matches any of its members.
type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// Values returns the parameter value as a list.
func (p *Parameter) Values() []string {
	switch actual := p.Value.(type) {
	case string:
		return []string{actual}
	case []string:
		return actual
	}
	return nil
}
