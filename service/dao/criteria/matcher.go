package criteria

import (
	"github.com/viant/procureflow/service/dao"
)

// Field returns the value of a named entity field and whether the entity has it.
type Field func(name string) (string, bool)

// Match reports whether every parameter matches the entity. Parameters naming
// a field the entity does not have are ignored.
func Match(field Field, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		value, ok := field(parameter.Name)
		if !ok {
			continue
		}
		if !matchAny(value, parameter.Values()) {
			return false
		}
	}
	return true
}

func matchAny(value string, candidates []string) bool {
	for _, candidate := range candidates {
		if value == candidate {
			return true
		}
	}
	return false
}
