package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/maildrop"
)

func init() {
	rootCmd.AddCommand(maildropCmd)
}

var maildropCmd = &cobra.Command{
	Use:   "maildrop",
	Short: "Queue an inbound email from stdin",
	Long: "Reads a raw RFC-2822 email from stdin, validates the sender against the\n" +
		"allowlist and rate limit, and writes a classify job to the daemon inbox.\n\n" +
		"Wire it up as a pipe transport in /etc/aliases:\n" +
		"  collections: |/usr/local/bin/draftgate maildrop",
	RunE: runMaildrop,
}

func runMaildrop(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("empty input")
	}

	return maildrop.ProcessEmail(maildrop.Config{
		InboxDir:      cfg.Daemon.Inbox,
		AllowlistFile: cfg.Maildrop.AllowlistFile,
		RateLimitDir:  stateSubdir(cfg.Daemon.State, "ratelimit"),
		RateLimit:     cfg.Maildrop.RateLimit,
		RateWindow:    cfg.Maildrop.RateWindowDuration(),
	}, raw)
}
