package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/solvix/draftgate/internal/llm"
	"github.com/solvix/draftgate/internal/model"
	"github.com/solvix/draftgate/internal/prompts"
)

// gateTemperature keeps gate decisions repeatable across runs.
const gateTemperature = 0.1

// neverContactedDays stands in for "days since last touch" when there is no
// prior contact, so the cooling-off gate always passes.
const neverContactedDays = 999

// batchWorkers bounds concurrent provider calls during batch evaluation.
const batchWorkers = 4

// validActions are the collection actions the evaluator accepts.
var validActions = map[string]bool{
	"send_email":  true,
	"create_case": true,
	"escalate":    true,
	"close_case":  true,
}

// GateEvaluator asks the model whether a proposed collection action should
// proceed, given touch caps, cooling-off windows, disputes, and history.
type GateEvaluator struct {
	client llm.Client

	now func() time.Time
}

// NewGateEvaluator creates an evaluator over the given provider.
func NewGateEvaluator(client llm.Client) *GateEvaluator {
	return &GateEvaluator{client: client, now: time.Now}
}

// GateRequest is one proposed action against one case.
type GateRequest struct {
	Context              *model.CaseContext `json:"context"`
	ProposedAction       string             `json:"proposed_action"`
	ProposedTone         string             `json:"proposed_tone,omitempty"`
	UnsubscribeRequested bool               `json:"unsubscribe_requested,omitempty"`
}

// GateResult is one gate's decision.
type GateResult struct {
	Passed       bool   `json:"passed"`
	Reason       string `json:"reason"`
	CurrentValue any    `json:"current_value,omitempty"`
	Threshold    any    `json:"threshold,omitempty"`
}

// GateResponse is the full evaluation: allowed only when no gate failed.
type GateResponse struct {
	Allowed           bool                  `json:"allowed"`
	Gates             map[string]GateResult `json:"gate_results"`
	RecommendedAction string                `json:"recommended_action,omitempty"`
	TokensUsed        int                   `json:"tokens_used"`
}

type gateLLMResponse struct {
	Allowed           bool                  `json:"allowed"`
	GateResults       map[string]GateResult `json:"gate_results"`
	RecommendedAction string                `json:"recommended_action"`
}

// Evaluate runs the gates for one proposed action.
func (e *GateEvaluator) Evaluate(ctx context.Context, req GateRequest) (GateResponse, error) {
	if req.Context == nil {
		return GateResponse{}, fmt.Errorf("gates: missing case context")
	}
	if !validActions[req.ProposedAction] {
		return GateResponse{}, fmt.Errorf("gates: unknown action %q", req.ProposedAction)
	}
	if req.ProposedTone != "" && !model.ValidTones[model.Tone(req.ProposedTone)] {
		return GateResponse{}, fmt.Errorf("gates: unknown tone %q", req.ProposedTone)
	}

	days := daysSinceLastTouch(req.Context, e.now())
	user := prompts.GatesUser(req.Context, req.ProposedAction, req.ProposedTone, days, req.UnsubscribeRequested)

	completion, err := e.client.Complete(ctx, prompts.GatesSystem, user, llm.Options{
		Temperature: gateTemperature,
	})
	if err != nil {
		return GateResponse{}, fmt.Errorf("gates: %w", err)
	}

	var parsed gateLLMResponse
	if err := json.Unmarshal([]byte(llm.CleanJSON(completion.Content)), &parsed); err != nil {
		return GateResponse{}, fmt.Errorf("gates: invalid JSON from model: %w", err)
	}
	if len(parsed.GateResults) == 0 {
		return GateResponse{}, fmt.Errorf("gates: model returned no gate results")
	}

	return GateResponse{
		Allowed:           parsed.Allowed,
		Gates:             parsed.GateResults,
		RecommendedAction: parsed.RecommendedAction,
		TokensUsed:        completion.TokensUsed,
	}, nil
}

// BatchGateResult pairs one batch entry with its outcome.
type BatchGateResult struct {
	Index    int
	Response GateResponse
	Err      error
}

// EvaluateBatch evaluates independent requests concurrently with a fixed
// worker pool. Results are returned in input order.
func (e *GateEvaluator) EvaluateBatch(ctx context.Context, reqs []GateRequest) []BatchGateResult {
	results := make([]BatchGateResult, len(reqs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := batchWorkers
	if len(reqs) < workers {
		workers = len(reqs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				resp, err := e.Evaluate(ctx, reqs[i])
				results[i] = BatchGateResult{Index: i, Response: resp, Err: err}
			}
		}()
	}

	for i := range reqs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// daysSinceLastTouch computes whole days since the last outreach, or
// neverContactedDays when there is none on record.
func daysSinceLastTouch(cc *model.CaseContext, now time.Time) int {
	if cc.Communication == nil || cc.Communication.LastTouchAt == nil {
		return neverContactedDays
	}
	return int(now.Sub(*cc.Communication.LastTouchAt).Hours() / 24)
}
