// Package guardrail implements the post-hoc validation pipeline for
// LLM-generated collection drafts. Five independent checkers inspect a draft
// against the case context; the pipeline runs them in severity order,
// aggregates per-check results, and decides block/pass/retry.
//
// Guardrails are pure functions of their inputs: the factual ground truth is
// the CaseContext plus caller-supplied extracted data, and nothing else. The
// one declared exception is the promise-date check, which compares against
// the wall clock, and the optional LLM-adjudicated entity check, which
// performs a network call.
package guardrail

import (
	"context"
	"fmt"

	"github.com/solvix/draftgate/internal/model"
)

// Extras carries caller-supplied facts beyond the case context.
type Extras struct {
	// Extracted holds data the classifier pulled from the inbound email
	// (promise date, redirect email). Nil when validating cold outreach.
	Extracted *model.ExtractedData
}

// Guardrail is one named, severity-tagged checker. Validate returns one
// Result per sub-check and must return at least one result per invocation —
// nothing to flag still emits a pass, so accuracy denominators stay honest.
// A non-nil error marks an execution fault (not a check violation); the
// pipeline converts it into a synthetic blocking failure.
type Guardrail interface {
	Name() string
	Severity() Severity
	Validate(ctx context.Context, output string, cc *model.CaseContext, extras Extras) ([]Result, error)
}

// base carries the fixed identity of a concrete guardrail and the result
// constructors shared by all of them.
type base struct {
	name     string
	severity Severity
}

func (b base) Name() string       { return b.name }
func (b base) Severity() Severity { return b.severity }

func (b base) pass(message string, details map[string]any) Result {
	if message == "" {
		message = fmt.Sprintf("%s validation passed", b.name)
	}
	return Result{
		Passed:    true,
		Guardrail: b.name,
		Severity:  b.severity,
		Message:   message,
		Details:   details,
	}
}

func (b base) fail(message string, expected, found any, details map[string]any) Result {
	return Result{
		Passed:    false,
		Guardrail: b.name,
		Severity:  b.severity,
		Message:   message,
		Details:   details,
		Expected:  expected,
		Found:     found,
	}
}
