// Package daemon implements the draftgate inbox/outbox job service. Jobs
// arrive as JSON files in the inbox directory (dropped by maildrop or by an
// operator), run through the engine, and results land in the outbox.
// Generated drafts wait there for human review before anything is sent.
package daemon

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/solvix/draftgate/internal/engine"
	"github.com/solvix/draftgate/internal/model"
)

// JobStatus represents the lifecycle state of an inbox job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// Valid job types.
const (
	// JobTypeClassify classifies an inbound debtor email and evaluates
	// what action the gates would allow next. Maildrop only ever emits
	// this type.
	JobTypeClassify = "classify"

	// JobTypeDraft generates a validated outbound draft for a party.
	JobTypeDraft = "draft"
)

var validJobTypes = map[string]bool{
	JobTypeClassify: true,
	JobTypeDraft:    true,
}

// validID matches alphanumeric characters, dashes, and underscores only.
var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Job is a unit of work dropped into the inbox.
type Job struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	PartyCode string `json:"party_code"`

	// Email is the inbound message for classify jobs.
	Email *model.Email `json:"email,omitempty"`

	// Draft-job fields.
	Tone               string `json:"tone,omitempty"`
	Objective          string `json:"objective,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`

	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// DraftResult is the generated draft carried inside a Result.
type DraftResult struct {
	Subject            string                   `json:"subject"`
	Body               string                   `json:"body"`
	ToneUsed           string                   `json:"tone_used"`
	InvoicesReferenced []string                 `json:"invoices_referenced,omitempty"`
	Attempts           int                      `json:"attempts"`
	Validation         engine.ValidationSummary `json:"guardrail_validation"`
}

// Result is written to the outbox after processing a job.
type Result struct {
	ID             string               `json:"id"`
	Status         string               `json:"status"`
	PartyCode      string               `json:"party_code,omitempty"`
	Classification *engine.ClassifyResponse `json:"classification,omitempty"`
	Gates          *engine.GateResponse `json:"gates,omitempty"`
	Draft          *DraftResult         `json:"draft,omitempty"`
	TokensUsed     int                  `json:"tokens_used,omitempty"`
	Error          string               `json:"error,omitempty"`
	CompletedAt    time.Time            `json:"completed_at"`
}

// Result status values.
const (
	ResultDone = "done"

	ResultFailed = "failed"

	// ResultGated means the policy gates refused the proposed action;
	// no draft was generated.
	ResultGated = "gated"

	// ResultBlocked means the guardrails blocked every generated draft.
	// The last draft and its verdict are included for inspection but the
	// draft must not be sent.
	ResultBlocked = "blocked"

	// ResultPendingReview means a validated draft is waiting for a human
	// to approve or reject it.
	ResultPendingReview = "pending_review"
)

// ValidateJob checks that a job has all required fields and safe values.
func ValidateJob(j *Job) error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if strings.Contains(j.ID, "..") {
		return fmt.Errorf("job ID must not contain '..'")
	}
	if !validID.MatchString(j.ID) {
		return fmt.Errorf("job ID contains invalid characters: only alphanumeric, dash, and underscore allowed")
	}
	if j.Type == "" {
		return fmt.Errorf("job type is required")
	}
	if !validJobTypes[j.Type] {
		return fmt.Errorf("invalid job type %q: must be one of: classify, draft", j.Type)
	}
	if j.PartyCode == "" {
		return fmt.Errorf("job party code is required")
	}
	if j.Type == JobTypeClassify && (j.Email == nil || j.Email.Body == "") {
		return fmt.Errorf("classify job requires an email body")
	}
	return nil
}
