package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/audit"
	"github.com/solvix/draftgate/internal/guardrail"
)

var (
	validateContext   string
	validateDraft     string
	validateExtracted string
	validateNoAudit   bool
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateContext, "context", "", "Path to case context YAML (required)")
	validateCmd.Flags().StringVar(&validateDraft, "draft", "-", "Path to draft body, or - for stdin")
	validateCmd.Flags().StringVar(&validateExtracted, "extracted", "", "Path to extracted-data YAML from the inbound email")
	validateCmd.Flags().BoolVar(&validateNoAudit, "no-audit", false, "Skip recording a verdict in the audit log")
	validateCmd.MarkFlagRequired("context")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the guardrail pipeline over a draft",
	Long: "Validates a draft email body against a case context: invoice numbers,\n" +
		"amounts, totals, identity, promise dates, and tone appropriateness.\n\n" +
		"Exit code 0 when the draft may be sent, 1 when it is blocked.",
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, cfgHash, err := loadConfig()
	if err != nil {
		return err
	}

	cc, err := loadContext(validateContext)
	if err != nil {
		return err
	}
	extracted, err := loadExtracted(validateExtracted)
	if err != nil {
		return err
	}
	draft, err := readInput(validateDraft)
	if err != nil {
		return fmt.Errorf("read draft: %w", err)
	}

	pipeline := buildPipeline(cfg)
	result := pipeline.Validate(cmd.Context(), string(draft), cc, guardrail.Extras{Extracted: extracted})

	if !validateNoAudit && cfg.AuditLog != "" {
		if err := recordVerdict(cfg.AuditLog, cfgHash, cc.Party.CustomerCode, "validate", string(draft), result); err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit record failed: %v\n", err)
		}
	}

	if err := printJSON(result); err != nil {
		return err
	}
	if result.ShouldBlock {
		os.Exit(1)
	}
	return nil
}

// recordVerdict appends one hash-chained entry for a validation run.
func recordVerdict(path, cfgHash, partyCode, operation, draft string, result guardrail.PipelineResult) error {
	log, err := audit.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	entry := audit.FromPipeline(draft, result)
	entry.TraceID = "cli-" + uuid.NewString()[:8]
	entry.PartyCode = partyCode
	entry.Operation = operation
	entry.ConfigHash = cfgHash
	return log.Record(entry)
}
