// Package engine wires the LLM into the three collection operations:
// inbound classification, pre-action gate evaluation, and validated draft
// generation.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solvix/draftgate/internal/llm"
	"github.com/solvix/draftgate/internal/model"
	"github.com/solvix/draftgate/internal/prompts"
)

// classifyTemperature keeps classification near-deterministic.
const classifyTemperature = 0.2

// Classifier assigns inbound debtor emails to one of the thirteen
// categories and extracts structured data for downstream validation.
type Classifier struct {
	client llm.Client
}

// NewClassifier creates a classifier over the given provider.
func NewClassifier(client llm.Client) *Classifier {
	return &Classifier{client: client}
}

// ClassifyRequest is one inbound email with its case context.
type ClassifyRequest struct {
	Email   model.Email        `json:"email"`
	Context *model.CaseContext `json:"context"`
}

// ClassifyResponse is the classification verdict.
type ClassifyResponse struct {
	Classification model.Classification `json:"classification"`
	Confidence     float64              `json:"confidence"`
	Reasoning      string               `json:"reasoning"`
	Extracted      *model.ExtractedData `json:"extracted_data,omitempty"`
	TokensUsed     int                  `json:"tokens_used"`
}

// classificationLLMResponse is the JSON shape the model is prompted to emit.
type classificationLLMResponse struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	ExtractedData  *struct {
		PromiseDate     string   `json:"promise_date"`
		PromiseAmount   *float64 `json:"promise_amount"`
		DisputeType     string   `json:"dispute_type"`
		DisputeReason   string   `json:"dispute_reason"`
		RedirectContact string   `json:"redirect_contact"`
		RedirectEmail   string   `json:"redirect_email"`
	} `json:"extracted_data"`
}

// Classify classifies one inbound email.
func (c *Classifier) Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error) {
	if req.Context == nil {
		return ClassifyResponse{}, fmt.Errorf("classify: missing case context")
	}

	user := prompts.ClassifyUser(req.Context, req.Email)
	completion, err := c.client.Complete(ctx, prompts.ClassifySystem, user, llm.Options{
		Temperature: classifyTemperature,
	})
	if err != nil {
		return ClassifyResponse{}, fmt.Errorf("classify: %w", err)
	}

	var parsed classificationLLMResponse
	if err := json.Unmarshal([]byte(llm.CleanJSON(completion.Content)), &parsed); err != nil {
		return ClassifyResponse{}, fmt.Errorf("classify: invalid JSON from model: %w", err)
	}

	classification := model.Classification(parsed.Classification)
	if !model.ValidClassifications[classification] {
		return ClassifyResponse{}, fmt.Errorf("classify: unknown classification %q", parsed.Classification)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return ClassifyResponse{}, fmt.Errorf("classify: confidence %v out of range", parsed.Confidence)
	}

	return ClassifyResponse{
		Classification: classification,
		Confidence:     parsed.Confidence,
		Reasoning:      parsed.Reasoning,
		Extracted:      parsed.extracted(),
		TokensUsed:     completion.TokensUsed,
	}, nil
}

// extracted converts the raw extraction block, dropping it entirely when
// every field is empty. An unparseable promise date is dropped rather than
// failing the classification.
func (r *classificationLLMResponse) extracted() *model.ExtractedData {
	raw := r.ExtractedData
	if raw == nil {
		return nil
	}
	if raw.PromiseDate == "" && raw.PromiseAmount == nil && raw.DisputeType == "" &&
		raw.DisputeReason == "" && raw.RedirectContact == "" && raw.RedirectEmail == "" {
		return nil
	}

	out := &model.ExtractedData{
		DisputeType:     raw.DisputeType,
		DisputeReason:   raw.DisputeReason,
		RedirectContact: raw.RedirectContact,
		RedirectEmail:   raw.RedirectEmail,
	}
	if raw.PromiseAmount != nil {
		out.PromiseAmount = *raw.PromiseAmount
	}
	if raw.PromiseDate != "" {
		if d, err := time.Parse("2006-01-02", raw.PromiseDate); err == nil {
			out.PromiseDate = &d
		}
	}
	return out
}
