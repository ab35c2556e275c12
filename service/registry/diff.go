package registry

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/viant/procureflow/model"
	"gopkg.in/yaml.v3"
)

// DiffStats captures basic statistics about a unified-diff output.
type DiffStats struct {
	Added   int
	Removed int
}

// Diff renders a unified diff between the canonical YAML of two definitions.
// Identical definitions produce an empty diff. Either side may be nil.
func Diff(from, to *model.Definition) (string, DiffStats, error) {
	fromYAML, err := canonical(from)
	if err != nil {
		return "", DiffStats{}, err
	}
	toYAML, err := canonical(to)
	if err != nil {
		return "", DiffStats{}, err
	}
	if fromYAML == toYAML {
		return "", DiffStats{}, nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(fromYAML),
		B:        difflib.SplitLines(toYAML),
		FromFile: label(from),
		ToFile:   label(to),
		Context:  3,
	}
	patch, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", DiffStats{}, err
	}
	var stats DiffStats
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			stats.Added++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			stats.Removed++
		}
	}
	return patch, stats, nil
}

func canonical(definition *model.Definition) (string, error) {
	if definition == nil {
		return "", nil
	}
	data, err := yaml.Marshal(definition)
	if err != nil {
		return "", fmt.Errorf("failed to encode definition %s: %w", definition.ID, err)
	}
	return string(data), nil
}

func label(definition *model.Definition) string {
	if definition == nil {
		return "/dev/null"
	}
	return fmt.Sprintf("%s/%s@v%d", definition.TenantID, definition.RecordType, definition.Version)
}
