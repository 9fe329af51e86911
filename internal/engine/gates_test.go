package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/solvix/draftgate/internal/llm"
	"github.com/solvix/draftgate/internal/model"
)

const gatesAllowedJSON = `{
	"allowed": true,
	"gate_results": {
		"touch_cap": {"passed": true, "reason": "2 of 6 touches used", "current_value": 2, "threshold": 6},
		"cooling_off": {"passed": true, "reason": "8 days since last touch", "current_value": 8, "threshold": 5}
	},
	"recommended_action": null
}`

func TestGatesParsesDecision(t *testing.T) {
	client := &scriptedClient{responses: []llm.Completion{{Content: gatesAllowedJSON, TokensUsed: 180}}}
	e := NewGateEvaluator(client)

	resp, err := e.Evaluate(context.Background(), GateRequest{
		Context:        testCase(),
		ProposedAction: "send_email",
		ProposedTone:   "professional",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Allowed {
		t.Error("expected allowed")
	}
	if len(resp.Gates) != 2 {
		t.Errorf("gates = %d, want 2", len(resp.Gates))
	}
	if g, ok := resp.Gates["touch_cap"]; !ok || !g.Passed {
		t.Errorf("touch_cap gate = %+v", g)
	}
	if resp.TokensUsed != 180 {
		t.Errorf("tokens = %d", resp.TokensUsed)
	}
}

func TestGatesBlockedDecision(t *testing.T) {
	client := &scriptedClient{responses: []llm.Completion{{Content: `{
		"allowed": false,
		"gate_results": {
			"dispute_active": {"passed": false, "reason": "unresolved dispute", "current_value": true, "threshold": false}
		},
		"recommended_action": "Resolve dispute before further contact"
	}`}}}
	e := NewGateEvaluator(client)

	cc := testCase()
	cc.ActiveDispute = true
	resp, err := e.Evaluate(context.Background(), GateRequest{Context: cc, ProposedAction: "send_email"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Allowed {
		t.Error("expected blocked")
	}
	if resp.RecommendedAction == "" {
		t.Error("blocked decision should carry a recommendation")
	}
}

func TestGatesRejectsUnknownAction(t *testing.T) {
	e := NewGateEvaluator(&scriptedClient{})
	_, err := e.Evaluate(context.Background(), GateRequest{Context: testCase(), ProposedAction: "launch_missiles"})
	if err == nil || !strings.Contains(err.Error(), "unknown action") {
		t.Fatalf("err = %v", err)
	}
}

func TestGatesRejectsUnknownTone(t *testing.T) {
	e := NewGateEvaluator(&scriptedClient{})
	_, err := e.Evaluate(context.Background(), GateRequest{
		Context:        testCase(),
		ProposedAction: "send_email",
		ProposedTone:   "shouty",
	})
	if err == nil || !strings.Contains(err.Error(), "unknown tone") {
		t.Fatalf("err = %v", err)
	}
}

func TestGatesPromptNeverContacted(t *testing.T) {
	client := &scriptedClient{responses: []llm.Completion{{Content: gatesAllowedJSON}}}
	e := NewGateEvaluator(client)

	_, err := e.Evaluate(context.Background(), GateRequest{Context: testCase(), ProposedAction: "send_email"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(client.userPrompts[0], "Days Since Last Touch: 999") {
		t.Error("never-contacted case should report 999 days")
	}
}

func TestGatesPromptDaysSinceLastTouch(t *testing.T) {
	client := &scriptedClient{responses: []llm.Completion{{Content: gatesAllowedJSON}}}
	e := NewGateEvaluator(client)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	last := now.AddDate(0, 0, -8)
	cc := testCase()
	cc.Communication = &model.Communication{TouchCount: 2, LastTouchAt: &last, LastToneUsed: "professional"}

	_, err := e.Evaluate(context.Background(), GateRequest{Context: cc, ProposedAction: "send_email"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(client.userPrompts[0], "Days Since Last Touch: 8") {
		t.Errorf("prompt missing touch interval:\n%s", client.userPrompts[0])
	}
}

func TestGatesEvaluateBatchKeepsOrder(t *testing.T) {
	// All responses identical, so order is proven by the per-index error
	// placement of the invalid request.
	client := &batchClient{content: gatesAllowedJSON}
	e := NewGateEvaluator(client)

	reqs := []GateRequest{
		{Context: testCase(), ProposedAction: "send_email"},
		{Context: testCase(), ProposedAction: "bad_action"},
		{Context: testCase(), ProposedAction: "escalate"},
	}
	results := e.EvaluateBatch(context.Background(), reqs)
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("invalid action should fail at its own index")
	}
	if !results[0].Response.Allowed || !results[2].Response.Allowed {
		t.Error("valid requests should be allowed")
	}
}

// batchClient is safe for concurrent use and always returns the same body.
type batchClient struct {
	content string
}

func (b *batchClient) Complete(ctx context.Context, system, user string, opts llm.Options) (llm.Completion, error) {
	return llm.Completion{Content: b.content}, nil
}
