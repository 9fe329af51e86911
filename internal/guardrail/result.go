package guardrail

// Result is one check outcome. Immutable once constructed: a guardrail
// produces it exactly once per check and nothing downstream mutates it.
type Result struct {
	Passed    bool           `json:"passed"`
	Guardrail string         `json:"guardrail"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Expected  any            `json:"expected,omitempty"`
	Found     any            `json:"found,omitempty"`
}

// ShouldBlock reports whether this result alone blocks the output:
// a failed check at CRITICAL or HIGH severity.
func (r Result) ShouldBlock() bool {
	return !r.Passed && r.Severity.Blocks()
}

// PipelineResult aggregates every check outcome from one validation run.
// Created fresh per Validate call, never persisted or mutated after return.
type PipelineResult struct {
	AllPassed      bool     `json:"all_passed"`
	ShouldBlock    bool     `json:"should_block"`
	Results        []Result `json:"results"`
	RetrySuggested bool     `json:"retry_suggested"`

	// BlockingGuardrails lists the guardrail name of each blocking failure in
	// insertion order. Duplicates are kept: two failing checks from the same
	// guardrail are two entries.
	BlockingGuardrails []string `json:"blocking_guardrails"`
}

// CriticalFailures returns all failed CRITICAL results.
func (p *PipelineResult) CriticalFailures() []Result {
	var out []Result
	for _, r := range p.Results {
		if !r.Passed && r.Severity == SeverityCritical {
			out = append(out, r)
		}
	}
	return out
}

// Failures returns every failed result regardless of severity.
func (p *PipelineResult) Failures() []Result {
	var out []Result
	for _, r := range p.Results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Warnings returns the names of guardrails with advisory (non-blocking)
// failures.
func (p *PipelineResult) Warnings() []string {
	var out []string
	for _, r := range p.Results {
		if !r.Passed && !r.Severity.Blocks() {
			out = append(out, r.Guardrail)
		}
	}
	return out
}

// FactualAccuracy is the ratio of passed checks to total checks.
// An empty run counts as fully accurate.
func (p *PipelineResult) FactualAccuracy() float64 {
	if len(p.Results) == 0 {
		return 1.0
	}
	passed := 0
	for _, r := range p.Results {
		if r.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(p.Results))
}
