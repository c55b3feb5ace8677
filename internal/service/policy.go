package service

// GradingPolicy carries the configured cutoffs applied after the
// authoritative recalculation. The source system used two conflicting
// passing cutoffs in different code paths; this single configured value
// replaces both.
type GradingPolicy struct {
	// PassingScore is the minimum total for a terminal Passed state.
	PassingScore float64
	// EscalationScore is the total at or below which a graded submission
	// needs a second opinion.
	EscalationScore float64
}

// DefaultGradingPolicy mirrors the configuration defaults.
func DefaultGradingPolicy() GradingPolicy {
	return GradingPolicy{
		PassingScore:    5.0,
		EscalationScore: 3.0,
	}
}
