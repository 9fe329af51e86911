package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/daemon"
	"github.com/solvix/draftgate/internal/llm"
)

var daemonPoll bool

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().BoolVar(&daemonPoll, "poll", false, "Poll the inbox instead of using filesystem notifications")
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the job-processing daemon",
	Long: "Watches the inbox directory for job files, classifies inbound email,\n" +
		"evaluates gates, generates validated drafts, and writes results to the\n" +
		"outbox. Drafts that pass validation wait in review until approved.",
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, cfgHash, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := daemon.New(daemon.Config{
		Dirs: daemon.DirConfig{
			Inbox:  cfg.Daemon.Inbox,
			Outbox: cfg.Daemon.Outbox,
			State:  cfg.Daemon.State,
		},
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
		AuditLog:           cfg.AuditLog,
		ConfigHash:         cfgHash,
		PollMode:           daemonPoll || cfg.Daemon.PollMode,
		PollInterval:       cfg.Daemon.PollInterval.Std(),
		Workers:            cfg.Daemon.Workers,
		ReviewTTL:          cfg.Daemon.ReviewTTL.Std(),
	})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "draftgate daemon watching %s\n", cfg.Daemon.Inbox)
	return d.Run(ctx)
}

// stateSubdir resolves a subdirectory of the daemon state dir.
func stateSubdir(state, name string) string {
	return filepath.Join(state, name)
}
