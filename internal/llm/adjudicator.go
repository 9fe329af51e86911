package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/neurorouter"
	"github.com/solvix/draftgate/internal/guardrail"
	"github.com/solvix/draftgate/internal/prompts"
)

// Adjudicator retry policy. The verdict blocks draft delivery, so transient
// faults are worth a few attempts before failing closed.
const (
	adjudicateAttempts   = 3
	adjudicateBackoff    = 500 * time.Millisecond
	adjudicateMultiplier = 2
	adjudicateMaxTokens  = 500
)

// entityVerdictResponse is the expected JSON from the adjudication prompt.
type entityVerdictResponse struct {
	CustomerCodeValid  bool     `json:"customer_code_valid"`
	CustomerCodeReason string   `json:"customer_code_reason"`
	PartyNameValid     bool     `json:"party_name_valid"`
	PartyNameReason    string   `json:"party_name_reason"`
	IssuesFound        []string `json:"issues_found"`
	Passed             bool     `json:"passed"`
}

// EntityAdjudicator obtains entity verdicts from the LLM with bounded
// retries. It satisfies guardrail.Adjudicator.
type EntityAdjudicator struct {
	client Client

	// backoff is the initial retry delay, doubled per attempt.
	backoff time.Duration
}

// NewEntityAdjudicator wraps a client. A nil client yields a nil interface,
// which selects the guardrail's deterministic strategy.
func NewEntityAdjudicator(client Client) guardrail.Adjudicator {
	if client == nil {
		return nil
	}
	return &EntityAdjudicator{client: client, backoff: adjudicateBackoff}
}

// AdjudicateEntities asks the model whether the draft's identifiers match
// the case. Retries transient faults with exponential backoff; a rate-limit
// error aborts immediately so the caller can defer the whole job.
func (a *EntityAdjudicator) AdjudicateEntities(ctx context.Context, draft, customerCode, partyName string) (guardrail.EntityVerdict, error) {
	user := prompts.AdjudicateUser(draft, customerCode, partyName)

	var lastErr error
	delay := a.backoff
	for attempt := 0; attempt < adjudicateAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return guardrail.EntityVerdict{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= adjudicateMultiplier
		}

		completion, err := a.client.Complete(ctx, prompts.AdjudicateSystem, user, Options{
			Temperature: 0,
			MaxTokens:   adjudicateMaxTokens,
		})
		if err != nil {
			if errors.Is(err, neurorouter.ErrRateLimited) {
				return guardrail.EntityVerdict{}, err
			}
			lastErr = err
			continue
		}

		var parsed entityVerdictResponse
		if err := json.Unmarshal([]byte(CleanJSON(completion.Content)), &parsed); err != nil {
			lastErr = fmt.Errorf("parse entity verdict: %w", err)
			continue
		}

		return guardrail.EntityVerdict{
			CustomerCodeValid:  parsed.CustomerCodeValid,
			CustomerCodeReason: parsed.CustomerCodeReason,
			PartyNameValid:     parsed.PartyNameValid,
			PartyNameReason:    parsed.PartyNameReason,
			Issues:             parsed.IssuesFound,
		}, nil
	}

	return guardrail.EntityVerdict{}, fmt.Errorf("entity adjudication exhausted %d attempts: %w", adjudicateAttempts, lastErr)
}
