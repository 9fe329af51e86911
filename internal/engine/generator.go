package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/solvix/draftgate/internal/guardrail"
	"github.com/solvix/draftgate/internal/llm"
	"github.com/solvix/draftgate/internal/model"
	"github.com/solvix/draftgate/internal/prompts"
)

// MaxGuardrailRetries is how many extra generation attempts a failing draft
// gets before the last attempt is returned with its verdict.
const MaxGuardrailRetries = 2

// draftTemperature leaves room for phrasing variety; the guardrails hold
// the facts in place.
const draftTemperature = 0.7

// maxPromptInvoices caps the invoice list in the prompt to the oldest debts.
const maxPromptInvoices = 10

// Generator produces collection drafts and validates every one through the
// guardrail pipeline before it leaves the engine.
type Generator struct {
	client   llm.Client
	pipeline *guardrail.Pipeline

	// MaxRetries overrides MaxGuardrailRetries when >= 0.
	MaxRetries int

	now func() time.Time
}

// NewGenerator creates a generator over the given provider and pipeline.
// A nil pipeline gets the default guardrail set without an adjudicator.
func NewGenerator(client llm.Client, pipeline *guardrail.Pipeline) *Generator {
	if pipeline == nil {
		pipeline = guardrail.NewPipeline()
	}
	return &Generator{
		client:     client,
		pipeline:   pipeline,
		MaxRetries: MaxGuardrailRetries,
		now:        time.Now,
	}
}

// GenerateRequest asks for one draft.
type GenerateRequest struct {
	Context            *model.CaseContext   `json:"context"`
	Tone               model.Tone           `json:"tone"`
	Objective          string               `json:"objective,omitempty"`
	CustomInstructions string               `json:"custom_instructions,omitempty"`
	Extracted          *model.ExtractedData `json:"extracted_data,omitempty"`
}

// ValidationSummary condenses the pipeline verdict for callers that do not
// need every individual result.
type ValidationSummary struct {
	AllPassed        bool     `json:"all_passed"`
	GuardrailsRun    int      `json:"guardrails_run"`
	GuardrailsPassed int      `json:"guardrails_passed"`
	BlockingFailures []string `json:"blocking_failures,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	FactualAccuracy  float64  `json:"factual_accuracy"`
}

// GenerateResponse is the draft with its validation verdict. Validation is
// the condensed view; Pipeline carries the verbatim per-check results.
type GenerateResponse struct {
	Subject            string                   `json:"subject"`
	Body               string                   `json:"body"`
	ToneUsed           model.Tone               `json:"tone_used"`
	InvoicesReferenced []string                 `json:"invoices_referenced"`
	TokensUsed         int                      `json:"tokens_used"`
	Attempts           int                      `json:"attempts"`
	Validation         ValidationSummary        `json:"guardrail_validation"`
	Pipeline           guardrail.PipelineResult `json:"pipeline_result"`
}

type draftLLMResponse struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Generate produces a draft, validating after each attempt. A blocked draft
// is regenerated with the failure feedback appended to the prompt; when
// attempts run out, the last draft is returned together with its failing
// verdict so the caller decides what to do with it.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	if req.Context == nil {
		return GenerateResponse{}, fmt.Errorf("generate: missing case context")
	}
	if !model.ValidTones[req.Tone] {
		return GenerateResponse{}, fmt.Errorf("generate: unknown tone %q", req.Tone)
	}
	if err := ScreenInstructions(req.CustomInstructions); err != nil {
		return GenerateResponse{}, fmt.Errorf("generate: %w", err)
	}

	basePrompt := prompts.DraftUser(
		req.Context,
		invoiceList(req.Context),
		string(req.Tone),
		req.Objective,
		req.CustomInstructions,
		daysSinceLastTouch(req.Context, g.now()),
	)

	maxRetries := g.MaxRetries
	if maxRetries < 0 {
		maxRetries = MaxGuardrailRetries
	}

	var (
		draft       draftLLMResponse
		verdict     guardrail.PipelineResult
		feedback    string
		totalTokens int
		attempts    int
	)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		attempts = attempt + 1

		completion, err := g.client.Complete(ctx, prompts.DraftSystem, basePrompt+feedback, llm.Options{
			Temperature: draftTemperature,
		})
		if err != nil {
			return GenerateResponse{}, fmt.Errorf("generate: %w", err)
		}
		totalTokens += completion.TokensUsed

		if err := json.Unmarshal([]byte(llm.CleanJSON(completion.Content)), &draft); err != nil {
			return GenerateResponse{}, fmt.Errorf("generate: invalid JSON from model: %w", err)
		}
		if draft.Body == "" {
			return GenerateResponse{}, fmt.Errorf("generate: model returned an empty draft body")
		}

		verdict = g.pipeline.Validate(ctx, draft.Body, req.Context, guardrail.Extras{Extracted: req.Extracted})
		if verdict.AllPassed {
			break
		}

		feedback = guardrail.Feedback(verdict)
	}

	passed := 0
	for _, r := range verdict.Results {
		if r.Passed {
			passed++
		}
	}

	return GenerateResponse{
		Subject:            draft.Subject,
		Body:               draft.Body,
		ToneUsed:           req.Tone,
		InvoicesReferenced: referencedInvoices(draft.Body, req.Context),
		TokensUsed:         totalTokens,
		Attempts:           attempts,
		Validation: ValidationSummary{
			AllPassed:        verdict.AllPassed,
			GuardrailsRun:    len(verdict.Results),
			GuardrailsPassed: passed,
			BlockingFailures: verdict.BlockingGuardrails,
			Warnings:         verdict.Warnings(),
			FactualAccuracy:  verdict.FactualAccuracy(),
		},
		Pipeline: verdict,
	}, nil
}

// invoiceList renders the top invoices by age for the prompt.
func invoiceList(cc *model.CaseContext) string {
	obligations := make([]model.Obligation, len(cc.Obligations))
	copy(obligations, cc.Obligations)
	sort.SliceStable(obligations, func(i, j int) bool {
		return obligations[i].DaysPastDue > obligations[j].DaysPastDue
	})
	if len(obligations) > maxPromptInvoices {
		obligations = obligations[:maxPromptInvoices]
	}
	if len(obligations) == 0 {
		return "No specific invoices provided"
	}

	lines := make([]string, 0, len(obligations))
	for _, o := range obligations {
		lines = append(lines, fmt.Sprintf("- %s: %s %s (%d days overdue)",
			o.InvoiceNumber, cc.Party.Currency, prompts.Money(o.AmountDue), o.DaysPastDue))
	}
	return strings.Join(lines, "\n")
}

// referencedInvoices lists the context invoices the draft actually mentions.
func referencedInvoices(body string, cc *model.CaseContext) []string {
	var refs []string
	for _, o := range cc.Obligations {
		if o.InvoiceNumber != "" && strings.Contains(body, o.InvoiceNumber) {
			refs = append(refs, o.InvoiceNumber)
		}
	}
	return refs
}
