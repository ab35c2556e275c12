package group

// SelectionState is the display state of a group checkbox.
type SelectionState int

const (
	SelectionNone SelectionState = iota
	SelectionSome
	SelectionAll
)

func (s SelectionState) String() string {
	switch s {
	case SelectionSome:
		return "some"
	case SelectionAll:
		return "all"
	case SelectionNone:
	}
	return "none"
}

// Selection reports how many of members are in selected.
func Selection(members []string, selected map[string]bool) SelectionState {
	count := 0
	for _, member := range members {
		if selected[member] {
			count++
		}
	}
	switch {
	case count == 0:
		return SelectionNone
	case count == len(members):
		return SelectionAll
	}
	return SelectionSome
}
