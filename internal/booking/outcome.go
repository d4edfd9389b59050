package booking

// Outcome reports what a mutation did. Not-found and disallowed transitions are outcomes, not errors.
type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeInvalidTransition Outcome = "invalid_transition"
	OutcomeUnchanged         Outcome = "unchanged"
)

func (o Outcome) Applied() bool { return o == OutcomeApplied }
