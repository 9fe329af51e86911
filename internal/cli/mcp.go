package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/llm"
	draftmcp "github.com/solvix/draftgate/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs draftgate as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes guardrail-enforced tools: draftgate_classify, draftgate_gates,\n" +
		"draftgate_generate, draftgate_validate.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, cfgHash, err := loadConfig()
	if err != nil {
		return err
	}

	srv, err := draftmcp.New(draftmcp.Config{
		Provider: llm.Config{
			APIURL:    cfg.Provider.APIURL,
			APIKey:    cfg.Provider.APIKey(),
			Model:     cfg.Provider.Model,
			MaxTokens: cfg.Provider.MaxTokens,
			Timeout:   cfg.Provider.Timeout.Std(),
		},
		FailFast:           cfg.Guardrails.FailFast,
		MaxRetries:         cfg.Guardrails.MaxGenerationRetries,
		RetryThreshold:     cfg.Guardrails.RetryThreshold,
		EntityAdjudication: cfg.Guardrails.EntityAdjudication,
		AuditLogPath:       cfg.AuditLog,
		ConfigHash:         cfgHash,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "draftgate MCP server running on stdio")
	return srv.Run(ctx)
}
