package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/neurorouter"

	"github.com/solvix/draftgate/internal/audit"
	"github.com/solvix/draftgate/internal/engine"
	"github.com/solvix/draftgate/internal/guardrail"
	"github.com/solvix/draftgate/internal/llm"
	"github.com/solvix/draftgate/internal/model"
)

// ProcessorConfig holds runtime configuration for job processing.
type ProcessorConfig struct {
	Dirs     DirConfig
	Provider llm.Config

	FailFast           bool
	MaxRetries         int
	RetryThreshold     int
	EntityAdjudication bool

	AuditLog   string
	ConfigHash string
}

// Processor handles job lifecycle transitions: read → validate → processing
// → engine → result in outbox, with an audit entry per validation run.
type Processor struct {
	cfg        ProcessorConfig
	classifier *engine.Classifier
	gates      *engine.GateEvaluator
	generator  *engine.Generator
	log        *audit.Log
}

// NewProcessor builds the engine stack and opens the audit log.
func NewProcessor(cfg ProcessorConfig) (*Processor, error) {
	if cfg.AuditLog == "" {
		cfg.AuditLog = filepath.Join(cfg.Dirs.State, "verdicts.jsonl")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.AuditLog), dirPerm); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}

	client := llm.New(cfg.Provider)

	var adj guardrail.Adjudicator
	if cfg.EntityAdjudication {
		adj = llm.NewEntityAdjudicator(client)
	}
	pipeline := guardrail.NewPipeline(guardrail.DefaultGuardrails(adj)...)
	pipeline.FailFast = cfg.FailFast
	if cfg.RetryThreshold > 0 {
		pipeline.RetryThreshold = cfg.RetryThreshold
	}

	generator := engine.NewGenerator(client, pipeline)
	if cfg.MaxRetries >= 0 {
		generator.MaxRetries = cfg.MaxRetries
	}

	log, err := audit.Open(cfg.AuditLog)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	return &Processor{
		cfg:        cfg,
		classifier: engine.NewClassifier(client),
		gates:      engine.NewGateEvaluator(client),
		generator:  generator,
		log:        log,
	}, nil
}

// Close releases the audit log.
func (p *Processor) Close() error {
	return p.log.Close()
}

// Process handles a single job file through its full lifecycle:
// read → validate → move to processing → execute → write result to outbox.
// A rate-limited provider defers the job instead of failing it.
func (p *Processor) Process(ctx context.Context, jobPath string) error {
	// Structural symlink defense: reject symlinks before reading, so an
	// inbox symlink cannot pull arbitrary filesystem paths into the job
	// stream.
	fi, err := os.Lstat(jobPath)
	if err != nil {
		return fmt.Errorf("stat job file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("rejected symlink: %s", filepath.Base(jobPath))
	}

	data, err := os.ReadFile(jobPath)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		_ = os.Remove(jobPath)
		return p.writeFailedResult(filepath.Base(jobPath), fmt.Sprintf("invalid JSON: %v", err))
	}

	if err := ValidateJob(&job); err != nil {
		_ = os.Remove(jobPath)
		return p.writeFailedResult(job.ID, fmt.Sprintf("validation failed: %v", err))
	}

	// Move to processing state. Uses moveFile to handle systemd bind
	// mounts (EXDEV).
	processingPath := filepath.Join(p.cfg.Dirs.ProcessingDir(), job.ID+".json")
	if err := moveFile(jobPath, processingPath); err != nil {
		return fmt.Errorf("move to processing: %w", err)
	}

	result, err := p.execute(ctx, &job)
	if err != nil {
		if errors.Is(err, neurorouter.ErrRateLimited) {
			// Provider is rate limited: park the job for the deferred
			// sweeper instead of burning it as failed.
			deferredPath := filepath.Join(p.cfg.Dirs.DeferredDir(), job.ID+".json")
			if mvErr := moveFile(processingPath, deferredPath); mvErr != nil {
				return fmt.Errorf("defer job: %w", mvErr)
			}
			fmt.Fprintf(os.Stderr, "daemon: LLM rate limited, deferred %s\n", job.ID)
			return nil
		}
		result = &Result{
			ID:          job.ID,
			Status:      ResultFailed,
			PartyCode:   job.PartyCode,
			Error:       err.Error(),
			CompletedAt: time.Now().UTC(),
		}
	}

	if err := p.writeResult(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	_ = os.Remove(processingPath)
	return nil
}

// execute dispatches the job to the appropriate handler.
func (p *Processor) execute(ctx context.Context, job *Job) (*Result, error) {
	cc, err := LoadCaseContext(p.cfg.Dirs.PartiesDir(), job.PartyCode)
	if err != nil {
		return nil, err
	}

	switch job.Type {
	case JobTypeClassify:
		return p.runClassify(ctx, job, cc)
	case JobTypeDraft:
		return p.runDraft(ctx, job, cc)
	default:
		return nil, fmt.Errorf("unsupported job type: %s", job.Type)
	}
}

// runClassify classifies an inbound debtor email.
func (p *Processor) runClassify(ctx context.Context, job *Job, cc *model.CaseContext) (*Result, error) {
	resp, err := p.classifier.Classify(ctx, engine.ClassifyRequest{
		Email:   *job.Email,
		Context: cc,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	return &Result{
		ID:             job.ID,
		Status:         ResultDone,
		PartyCode:      job.PartyCode,
		Classification: &resp,
		TokensUsed:     resp.TokensUsed,
		CompletedAt:    time.Now().UTC(),
	}, nil
}

// runDraft evaluates the policy gates and, when allowed, generates a
// guardrail-validated draft. A validated draft waits in the outbox as
// pending_review; a draft the guardrails still block after retries is
// recorded as blocked and must not be sent.
func (p *Processor) runDraft(ctx context.Context, job *Job, cc *model.CaseContext) (*Result, error) {
	tone := job.Tone
	if tone == "" {
		tone = string(model.ToneProfessional)
	}

	gates, err := p.gates.Evaluate(ctx, engine.GateRequest{
		Context:        cc,
		ProposedAction: "send_email",
		ProposedTone:   tone,
	})
	if err != nil {
		return nil, fmt.Errorf("gates: %w", err)
	}

	result := &Result{
		ID:          job.ID,
		PartyCode:   job.PartyCode,
		Gates:       &gates,
		TokensUsed:  gates.TokensUsed,
		CompletedAt: time.Now().UTC(),
	}

	if !gates.Allowed {
		result.Status = ResultGated
		return result, nil
	}

	gen, err := p.generator.Generate(ctx, engine.GenerateRequest{
		Context:            cc,
		Tone:               model.Tone(tone),
		Objective:          job.Objective,
		CustomInstructions: job.CustomInstructions,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	p.recordVerdict(job, gen)

	result.Draft = &DraftResult{
		Subject:            gen.Subject,
		Body:               gen.Body,
		ToneUsed:           string(gen.ToneUsed),
		InvoicesReferenced: gen.InvoicesReferenced,
		Attempts:           gen.Attempts,
		Validation:         gen.Validation,
	}
	result.TokensUsed += gen.TokensUsed
	result.CompletedAt = time.Now().UTC()

	if gen.Pipeline.ShouldBlock {
		result.Status = ResultBlocked
	} else {
		result.Status = ResultPendingReview
	}
	return result, nil
}

// recordVerdict appends the validation verdict to the audit chain. A failed
// append is reported but never fails the job: the result still reaches the
// outbox.
func (p *Processor) recordVerdict(job *Job, gen engine.GenerateResponse) {
	entry := audit.FromPipeline(gen.Body, gen.Pipeline)
	entry.TraceID = job.ID
	entry.PartyCode = job.PartyCode
	entry.Operation = "generate"
	entry.ConfigHash = p.cfg.ConfigHash
	if err := p.log.Record(entry); err != nil {
		fmt.Fprintf(os.Stderr, "daemon: audit record %s: %v\n", job.ID, err)
	}
}

// writeResult writes a result to the outbox directory atomically.
func (p *Processor) writeResult(r *Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	filename := r.ID + ".json"
	tmpPath := filepath.Join(p.cfg.Dirs.Outbox, filename+".tmp")
	finalPath := filepath.Join(p.cfg.Dirs.Outbox, filename)

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmpPath, finalPath)
}

// writeFailedResult writes a minimal failed result when the job can't be parsed.
func (p *Processor) writeFailedResult(id string, errMsg string) error {
	if id == "" {
		id = fmt.Sprintf("unknown-%d", time.Now().UnixNano())
	}
	r := &Result{
		ID:          id,
		Status:      ResultFailed,
		Error:       errMsg,
		CompletedAt: time.Now().UTC(),
	}
	return p.writeResult(r)
}
