package guardrail

// Severity classifies how a failed check affects the output.
// CRITICAL and HIGH failures block; MEDIUM and LOW are advisory.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityRank maps severity to a comparable integer. Lower rank runs first:
// the pipeline executes guardrails ascending by rank so critical checks
// surface failures (and short-circuit) before advisory ones.
var SeverityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Blocks reports whether a failure at this severity blocks the output.
func (s Severity) Blocks() bool {
	return s == SeverityCritical || s == SeverityHigh
}
