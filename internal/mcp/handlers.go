package mcp

import (
	"context"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/solvix/draftgate/internal/engine"
	"github.com/solvix/draftgate/internal/guardrail"
	"github.com/solvix/draftgate/internal/model"
)

// --- Input/Output types ---

// ClassifyInput defines parameters for the draftgate_classify tool.
type ClassifyInput struct {
	Context model.CaseContext `json:"context" jsonschema:"collection case context for the party"`
	Email   model.Email       `json:"email" jsonschema:"inbound debtor email"`
}

// ClassifyOutput is the classification verdict.
type ClassifyOutput struct {
	Classification string               `json:"classification"`
	Confidence     float64              `json:"confidence"`
	Reasoning      string               `json:"reasoning"`
	Extracted      *model.ExtractedData `json:"extracted_data,omitempty"`
	TokensUsed     int                  `json:"tokens_used"`
}

// GatesInput defines parameters for the draftgate_gates tool.
type GatesInput struct {
	Context              model.CaseContext `json:"context" jsonschema:"collection case context for the party"`
	ProposedAction       string            `json:"proposed_action" jsonschema:"action to evaluate (send_email/create_case/escalate/close_case)"`
	ProposedTone         string            `json:"proposed_tone,omitempty" jsonschema:"tone for send_email actions"`
	UnsubscribeRequested bool              `json:"unsubscribe_requested,omitempty" jsonschema:"debtor asked to stop contact"`
}

// GatesOutput contains the per-gate decisions.
type GatesOutput struct {
	Allowed           bool                         `json:"allowed"`
	Gates             map[string]engine.GateResult `json:"gate_results"`
	RecommendedAction string                       `json:"recommended_action,omitempty"`
	TokensUsed        int                          `json:"tokens_used"`
}

// GenerateInput defines parameters for the draftgate_generate tool.
type GenerateInput struct {
	Context            model.CaseContext    `json:"context" jsonschema:"collection case context for the party"`
	Tone               string               `json:"tone" jsonschema:"draft tone (friendly_reminder/professional/firm/final_notice/concerned_inquiry)"`
	Objective          string               `json:"objective,omitempty" jsonschema:"what the email should achieve"`
	CustomInstructions string               `json:"custom_instructions,omitempty" jsonschema:"operator guidance, screened for prompt injection"`
	Extracted          *model.ExtractedData `json:"extracted_data,omitempty" jsonschema:"facts extracted from the inbound email being answered"`
}

// GenerateOutput is the draft with its validation verdict.
type GenerateOutput struct {
	Subject            string                   `json:"subject"`
	Body               string                   `json:"body"`
	ToneUsed           string                   `json:"tone_used"`
	InvoicesReferenced []string                 `json:"invoices_referenced,omitempty"`
	Attempts           int                      `json:"attempts"`
	TokensUsed         int                      `json:"tokens_used"`
	Blocked            bool                     `json:"blocked,omitempty"`
	Validation         engine.ValidationSummary `json:"guardrail_validation"`
}

// ValidateInput defines parameters for the draftgate_validate tool.
type ValidateInput struct {
	Draft     string               `json:"draft" jsonschema:"draft email body to validate"`
	Context   model.CaseContext    `json:"context" jsonschema:"collection case context for the party"`
	Extracted *model.ExtractedData `json:"extracted_data,omitempty" jsonschema:"facts extracted from the inbound email"`
}

// ValidateOutput is the full pipeline verdict.
type ValidateOutput struct {
	AllPassed      bool               `json:"all_passed"`
	ShouldBlock    bool               `json:"should_block"`
	RetrySuggested bool               `json:"retry_suggested"`
	Blocking       []string           `json:"blocking_guardrails,omitempty"`
	Results        []guardrail.Result `json:"results"`
}

// --- Handlers ---

func (s *Server) handleClassify(ctx context.Context, req *mcpsdk.CallToolRequest, input ClassifyInput) (*mcpsdk.CallToolResult, ClassifyOutput, error) {
	resp, err := s.classifier.Classify(ctx, engine.ClassifyRequest{
		Email:   input.Email,
		Context: &input.Context,
	})
	if err != nil {
		return nil, ClassifyOutput{}, err
	}

	return nil, ClassifyOutput{
		Classification: string(resp.Classification),
		Confidence:     resp.Confidence,
		Reasoning:      resp.Reasoning,
		Extracted:      resp.Extracted,
		TokensUsed:     resp.TokensUsed,
	}, nil
}

func (s *Server) handleGates(ctx context.Context, req *mcpsdk.CallToolRequest, input GatesInput) (*mcpsdk.CallToolResult, GatesOutput, error) {
	resp, err := s.gates.Evaluate(ctx, engine.GateRequest{
		Context:              &input.Context,
		ProposedAction:       input.ProposedAction,
		ProposedTone:         input.ProposedTone,
		UnsubscribeRequested: input.UnsubscribeRequested,
	})
	if err != nil {
		return nil, GatesOutput{}, err
	}

	return nil, GatesOutput{
		Allowed:           resp.Allowed,
		Gates:             resp.Gates,
		RecommendedAction: resp.RecommendedAction,
		TokensUsed:        resp.TokensUsed,
	}, nil
}

func (s *Server) handleGenerate(ctx context.Context, req *mcpsdk.CallToolRequest, input GenerateInput) (*mcpsdk.CallToolResult, GenerateOutput, error) {
	resp, err := s.generator.Generate(ctx, engine.GenerateRequest{
		Context:            &input.Context,
		Tone:               model.Tone(input.Tone),
		Objective:          input.Objective,
		CustomInstructions: input.CustomInstructions,
		Extracted:          input.Extracted,
	})
	if err != nil {
		return nil, GenerateOutput{}, err
	}

	s.recordVerdict(newTraceID(), input.Context.Party.CustomerCode, "generate", resp.Body, resp.Pipeline)

	out := GenerateOutput{
		Subject:            resp.Subject,
		Body:               resp.Body,
		ToneUsed:           string(resp.ToneUsed),
		InvoicesReferenced: resp.InvoicesReferenced,
		Attempts:           resp.Attempts,
		TokensUsed:         resp.TokensUsed,
		Blocked:            resp.Pipeline.ShouldBlock,
		Validation:         resp.Validation,
	}

	if resp.Pipeline.ShouldBlock {
		// The draft is returned for inspection but flagged as an error
		// result: it must not be sent.
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleValidate(ctx context.Context, req *mcpsdk.CallToolRequest, input ValidateInput) (*mcpsdk.CallToolResult, ValidateOutput, error) {
	result := s.pipeline.Validate(ctx, input.Draft, &input.Context, guardrail.Extras{
		Extracted: input.Extracted,
	})

	s.recordVerdict(newTraceID(), input.Context.Party.CustomerCode, "validate", input.Draft, result)

	out := ValidateOutput{
		AllPassed:      result.AllPassed,
		ShouldBlock:    result.ShouldBlock,
		RetrySuggested: result.RetrySuggested,
		Blocking:       result.BlockingGuardrails,
		Results:        result.Results,
	}

	if result.ShouldBlock {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func newTraceID() string {
	return "t-" + uuid.NewString()[:8]
}
