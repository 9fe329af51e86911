package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/solvix/draftgate/internal/audit"
	"github.com/solvix/draftgate/internal/guardrail"
	"github.com/solvix/draftgate/internal/model"
)

// Run evaluates all cases in a scenario against the given case context.
// Guardrails run deterministically: the entity check operates without an
// adjudicator, so scenario verdicts never depend on a model backend.
func Run(s *Scenario, cc *model.CaseContext) *RunResult {
	pipeline := guardrail.NewPipeline(guardrail.DefaultGuardrails(nil)...)
	pipeline.FailFast = s.FailFast

	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		pr := pipeline.Validate(context.Background(), c.Draft, cc, guardrail.Extras{
			Extracted: resolveExtracted(c.Extracted),
		})

		actual := audit.Decision(pr)
		expected := strings.ToLower(c.Expect)

		cr := CaseResult{
			Index:    i + 1,
			Name:     c.Name,
			Expected: expected,
			Actual:   actual,
			Blocking: pr.BlockingGuardrails,
		}

		cr.Passed = actual == expected &&
			hasAll(pr.BlockingGuardrails, c.Blocking) &&
			(c.Evaluated == 0 || len(pr.Results) == c.Evaluated)
		if !cr.Passed {
			cr.Reason = failureReason(pr, c)
		}

		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

// LoadAndRun loads a scenario YAML file, resolves its case context, and runs.
func LoadAndRun(path string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	cc := s.Context
	if cc == nil {
		if s.ContextFile == "" {
			return nil, fmt.Errorf("scenario %s: no context or context_file", path)
		}
		ctxPath := s.ContextFile
		if !filepath.IsAbs(ctxPath) {
			ctxPath = filepath.Join(filepath.Dir(path), ctxPath)
		}
		ctxData, err := os.ReadFile(ctxPath)
		if err != nil {
			return nil, fmt.Errorf("read context %s: %w", ctxPath, err)
		}
		cc = &model.CaseContext{}
		if err := yaml.Unmarshal(ctxData, cc); err != nil {
			return nil, fmt.Errorf("parse context %s: %w", ctxPath, err)
		}
	}

	result := Run(&s, cc)
	result.File = path

	return result, nil
}

func resolveExtracted(e *Extracted) *model.ExtractedData {
	if e == nil {
		return nil
	}
	out := &model.ExtractedData{
		PromiseAmount: e.PromiseAmount,
		DisputeType:   e.DisputeType,
		DisputeReason: e.DisputeReason,
	}
	if e.PromiseDateOffsetDays != nil {
		d := time.Now().AddDate(0, 0, *e.PromiseDateOffsetDays)
		out.PromiseDate = &d
	} else if e.PromiseDate != "" {
		if d, err := time.Parse("2006-01-02", e.PromiseDate); err == nil {
			out.PromiseDate = &d
		}
	}
	return out
}

func hasAll(got, want []string) bool {
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func failureReason(pr guardrail.PipelineResult, c Case) string {
	if c.Evaluated != 0 && len(pr.Results) != c.Evaluated {
		return fmt.Sprintf("evaluated %d guardrails, expected %d", len(pr.Results), c.Evaluated)
	}
	var msgs []string
	for _, r := range pr.Results {
		if !r.Passed {
			msgs = append(msgs, fmt.Sprintf("%s: %s", r.Guardrail, r.Message))
		}
	}
	if len(msgs) == 0 {
		return "all guardrails passed"
	}
	return strings.Join(msgs, "; ")
}
