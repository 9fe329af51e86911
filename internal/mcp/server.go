// Package mcp exposes the draftgate engine as MCP tools over stdio, so an
// agent runtime can classify debtor email, run the policy gates, generate
// validated drafts, and re-validate edited drafts without shelling out to
// the CLI.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/solvix/draftgate/internal/audit"
	"github.com/solvix/draftgate/internal/engine"
	"github.com/solvix/draftgate/internal/guardrail"
	"github.com/solvix/draftgate/internal/llm"
)

// Config holds MCP server configuration.
type Config struct {
	Provider llm.Config

	FailFast           bool
	MaxRetries         int
	RetryThreshold     int
	EntityAdjudication bool

	AuditLogPath string
	ConfigHash   string
}

// Server wraps the MCP SDK server around the draftgate engine.
type Server struct {
	mcpServer  *mcpsdk.Server
	classifier *engine.Classifier
	gates      *engine.GateEvaluator
	generator  *engine.Generator
	pipeline   *guardrail.Pipeline
	auditLog   *audit.Log
	configHash string
}

// New creates an MCP server with the engine stack and tools registered.
func New(cfg Config) (*Server, error) {
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

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		var err error
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
	}

	s := &Server{
		classifier: engine.NewClassifier(client),
		gates:      engine.NewGateEvaluator(client),
		generator:  generator,
		pipeline:   pipeline,
		auditLog:   auditLog,
		configHash: cfg.ConfigHash,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "draftgate",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close closes the audit log if configured.
func (s *Server) Close() error {
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

// recordVerdict appends a validation verdict to the audit chain when a log
// is configured.
func (s *Server) recordVerdict(traceID, partyCode, operation, draft string, result guardrail.PipelineResult) {
	if s.auditLog == nil {
		return
	}
	entry := audit.FromPipeline(draft, result)
	entry.TraceID = traceID
	entry.PartyCode = partyCode
	entry.Operation = operation
	entry.ConfigHash = s.configHash
	_ = s.auditLog.Record(entry)
}

// registerTools adds all draftgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "draftgate_classify",
		Description: "Classify an inbound debtor email against its collection case context. Returns the category, confidence, and any extracted facts (promise date, dispute, redirect).",
	}, s.handleClassify)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "draftgate_gates",
		Description: "Evaluate the policy gates for a proposed collection action (touch frequency, touch cap, do-not-contact, unsubscribe, tone escalation). Returns per-gate decisions.",
	}, s.handleGates)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "draftgate_generate",
		Description: "Generate a collection email draft and validate it through the guardrail pipeline, retrying with failure feedback. A draft that still fails returns an error result with the blocking guardrails.",
	}, s.handleGenerate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "draftgate_validate",
		Description: "Validate a draft against the case context without generating anything. Returns every guardrail check result and the block/retry verdict.",
	}, s.handleValidate)
}
