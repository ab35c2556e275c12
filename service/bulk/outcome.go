package bulk

// Failure reports one record that could not be transitioned.
type Failure struct {
	ID    string `json:"id"`
	Code  string `json:"error"`
	Error error  `json:"-"`
}

// Outcome is the mixed result of a bulk call. Both lists keep the order in
// which ids were supplied.
type Outcome struct {
	Succeeded []string  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// HasFailures reports whether any record failed.
func (o *Outcome) HasFailures() bool {
	return len(o.Failed) > 0
}
