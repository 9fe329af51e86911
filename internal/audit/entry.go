package audit

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/solvix/draftgate/internal/guardrail"
)

// Entry is one validation verdict in the hash-chained JSONL log.
// All fields are scalars or slices (no map[string]any) to guarantee
// deterministic json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp       string   `json:"ts"`
	TraceID         string   `json:"trace_id"`
	PartyCode       string   `json:"party_code"`
	Operation       string   `json:"operation"`
	DraftSHA        string   `json:"draft_sha,omitempty"`
	Decision        string   `json:"decision"`
	Blocking        []string `json:"blocking,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	FactualAccuracy float64  `json:"factual_accuracy"`
	ConfigHash      string   `json:"config_hash"`
	PrevHash        string   `json:"prev_hash"`
}

// Decisions recorded per verdict.
const (
	DecisionPass  = "pass"
	DecisionWarn  = "warn"
	DecisionBlock = "block"
)

// Decision maps a pipeline verdict to the recorded decision: block beats
// warn beats pass.
func Decision(result guardrail.PipelineResult) string {
	switch {
	case result.ShouldBlock:
		return DecisionBlock
	case !result.AllPassed:
		return DecisionWarn
	default:
		return DecisionPass
	}
}

// HashDraft returns "sha256:<hex>" of a draft body, so the log never stores
// draft text but a verdict can still be tied to an exact draft.
func HashDraft(body string) string {
	h := sha256.Sum256([]byte(body))
	return "sha256:" + hex.EncodeToString(h[:])
}

// FromPipeline builds the verdict fields of an entry from a pipeline result.
// Caller fills TraceID, PartyCode, Operation, and ConfigHash.
func FromPipeline(body string, result guardrail.PipelineResult) Entry {
	return Entry{
		DraftSHA:        HashDraft(body),
		Decision:        Decision(result),
		Blocking:        result.BlockingGuardrails,
		Warnings:        result.Warnings(),
		FactualAccuracy: result.FactualAccuracy(),
	}
}
