package guardrail

import (
	"context"
	"fmt"
	"sort"

	"github.com/solvix/draftgate/internal/model"
)

// DefaultRetryThreshold is the largest number of distinct blocking
// guardrails still considered correctable by re-prompting. A handful of
// nameable violations can be fed back to the generator; many simultaneous
// violations suggest a deeper generation problem feedback will not fix.
const DefaultRetryThreshold = 2

// Pipeline runs a fixed set of guardrails in severity order and aggregates
// their results into a single verdict. Construction is cheap; build one per
// process and share it — validation itself keeps no state between calls.
type Pipeline struct {
	guardrails []Guardrail

	// FailFast stops processing at the first CRITICAL blocking failure.
	// A critical fabrication is reason enough to regenerate without spending
	// more validation time on diagnostics.
	FailFast bool

	// RetryThreshold bounds how many distinct blocking guardrails still
	// yield retry_suggested=true.
	RetryThreshold int
}

// NewPipeline builds a pipeline over the given guardrails, sorted ascending
// by severity rank. With no arguments it assembles the default five with the
// deterministic entity strategy.
func NewPipeline(guardrails ...Guardrail) *Pipeline {
	if len(guardrails) == 0 {
		guardrails = DefaultGuardrails(nil)
	}
	sorted := make([]Guardrail, len(guardrails))
	copy(sorted, guardrails)
	sort.SliceStable(sorted, func(i, j int) bool {
		return SeverityRank[sorted[i].Severity()] < SeverityRank[sorted[j].Severity()]
	})
	return &Pipeline{
		guardrails:     sorted,
		FailFast:       true,
		RetryThreshold: DefaultRetryThreshold,
	}
}

// DefaultGuardrails returns the standard five. A non-nil adjudicator
// switches entity verification to the LLM-adjudicated strategy.
func DefaultGuardrails(adj Adjudicator) []Guardrail {
	return []Guardrail{
		NewFactualGrounding(),
		NewNumericalConsistency(),
		NewEntityVerification(adj),
		NewTemporalConsistency(),
		NewContextualCoherence(),
	}
}

// Guardrails returns the execution-ordered guardrail list.
func (p *Pipeline) Guardrails() []Guardrail {
	return p.guardrails
}

// Validate runs every guardrail against the draft and returns the aggregate
// verdict. No error and no panic crosses this boundary: a guardrail fault is
// converted into a synthetic HIGH failing result so the caller always gets a
// verdict to act on.
func (p *Pipeline) Validate(ctx context.Context, output string, cc *model.CaseContext, extras Extras) PipelineResult {
	var all []Result
	var blocking []string
	shouldBlock := false

	for _, g := range p.guardrails {
		results, err := g.Validate(ctx, output, cc, extras)
		if err != nil {
			// Fail closed: an unrunnable check blocks rather than passes.
			all = append(all, Result{
				Passed:    false,
				Guardrail: g.Name(),
				Severity:  SeverityHigh,
				Message:   fmt.Sprintf("guardrail execution error: %v", err),
				Details:   map[string]any{"error": err.Error()},
			})
			shouldBlock = true
			blocking = append(blocking, g.Name())
			continue
		}

		all = append(all, results...)

		for _, r := range results {
			if !r.ShouldBlock() {
				continue
			}
			shouldBlock = true
			blocking = append(blocking, g.Name())

			// Only explicit CRITICAL failures short-circuit; faults and HIGH
			// failures let the remaining guardrails run.
			if p.FailFast && r.Severity == SeverityCritical {
				return PipelineResult{
					AllPassed:          false,
					ShouldBlock:        true,
					Results:            all,
					RetrySuggested:     true,
					BlockingGuardrails: blocking,
				}
			}
		}
	}

	allPassed := true
	for _, r := range all {
		if !r.Passed {
			allPassed = false
			break
		}
	}

	return PipelineResult{
		AllPassed:          allPassed,
		ShouldBlock:        shouldBlock,
		Results:            all,
		RetrySuggested:     shouldBlock && distinct(blocking) <= p.RetryThreshold,
		BlockingGuardrails: blocking,
	}
}

func distinct(names []string) int {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	return len(seen)
}
