package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solvix/draftgate/internal/config"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap draftgate configuration",
	Long: `Creates the config directory with a default config.yaml, a sender
allowlist template, the job directories, and an example party context.

Writes to ~/.draftgate/ unless --config points elsewhere.`,
	RunE: runInit,
}

const allowlistTemplate = `# Senders allowed to create jobs via maildrop.
# One pattern per line: an exact address or an @domain.com wildcard.
# Lines starting with # are comments.
#
# jane@acmetrading.co.uk
# @acmetrading.co.uk
`

const examplePartyYAML = `# Example case context. The daemon looks up contexts by party code:
# state/parties/<CODE>.yaml. Everything guardrails verify comes from here.
party:
  party_id: p-example
  customer_code: ACME-0042
  name: Acme Trading Ltd
  currency: GBP
  is_verified: true
obligations:
  - invoice_number: INV-12345
    original_amount: 1500.00
    amount_due: 1500.00
    due_date: "2024-01-15"
    days_past_due: 30
`

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return fmt.Errorf("cannot determine config path")
	}
	configDir := filepath.Dir(path)

	// Anchor every generated path at the config directory, so a --config
	// override bootstraps a self-contained tree.
	cfg := config.Default()
	cfg.Daemon.Inbox = filepath.Join(configDir, "inbox")
	cfg.Daemon.Outbox = filepath.Join(configDir, "outbox")
	cfg.Daemon.State = filepath.Join(configDir, "state")
	cfg.Maildrop.AllowlistFile = filepath.Join(configDir, "allowlist.txt")
	cfg.AuditLog = filepath.Join(configDir, "audit.jsonl")

	var created []string

	for _, dir := range []string{configDir, cfg.Daemon.Inbox, cfg.Daemon.Outbox, cfg.Daemon.State, filepath.Join(cfg.Daemon.State, "parties")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if wrote, err := writeIfMissing(path, string(cfgYAML)); err != nil {
		return err
	} else if wrote {
		created = append(created, path)
	}

	if wrote, err := writeIfMissing(cfg.Maildrop.AllowlistFile, allowlistTemplate); err != nil {
		return err
	} else if wrote {
		created = append(created, cfg.Maildrop.AllowlistFile)
	}

	examplePath := filepath.Join(cfg.Daemon.State, "parties", "ACME-0042.yaml.example")
	if wrote, err := writeIfMissing(examplePath, examplePartyYAML); err != nil {
		return err
	} else if wrote {
		created = append(created, examplePath)
	}

	if len(created) == 0 {
		fmt.Println("Nothing to do; configuration already exists. Use --force to overwrite.")
		return nil
	}
	fmt.Println("Created:")
	for _, c := range created {
		fmt.Printf("  %s\n", c)
	}
	return nil
}

// writeIfMissing writes content unless the file exists and --force is unset.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
