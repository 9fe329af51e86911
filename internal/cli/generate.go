package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/engine"
	"github.com/solvix/draftgate/internal/model"
)

var (
	generateContext      string
	generateTone         string
	generateObjective    string
	generateInstructions string
	generateExtracted    string
	generateNoAudit      bool
)

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateContext, "context", "", "Path to case context YAML (required)")
	generateCmd.Flags().StringVar(&generateTone, "tone", "professional", "Draft tone (friendly_reminder|professional|firm|final_notice|concerned_inquiry)")
	generateCmd.Flags().StringVar(&generateObjective, "objective", "", "What the email should achieve")
	generateCmd.Flags().StringVar(&generateInstructions, "instructions", "", "Operator guidance, screened before use")
	generateCmd.Flags().StringVar(&generateExtracted, "extracted", "", "Path to extracted-data YAML from the email being answered")
	generateCmd.Flags().BoolVar(&generateNoAudit, "no-audit", false, "Skip recording a verdict in the audit log")
	generateCmd.MarkFlagRequired("context")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a guardrail-validated collection draft",
	Long: "Generates a draft with the configured LLM and validates it through the\n" +
		"guardrail pipeline, feeding failures back for up to the configured number\n" +
		"of retries.\n\n" +
		"Exit code 0 when the final draft may be sent, 1 when it is blocked.",
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, cfgHash, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := providerClient(cfg)
	if err != nil {
		return err
	}

	if err := engine.ScreenInstructions(generateInstructions); err != nil {
		return err
	}

	cc, err := loadContext(generateContext)
	if err != nil {
		return err
	}
	extracted, err := loadExtracted(generateExtracted)
	if err != nil {
		return err
	}

	generator := engine.NewGenerator(client, buildPipeline(cfg))
	generator.MaxRetries = cfg.Guardrails.MaxGenerationRetries

	resp, err := generator.Generate(cmd.Context(), engine.GenerateRequest{
		Context:            cc,
		Tone:               model.Tone(generateTone),
		Objective:          generateObjective,
		CustomInstructions: generateInstructions,
		Extracted:          extracted,
	})
	if err != nil {
		return err
	}

	if !generateNoAudit && cfg.AuditLog != "" {
		if err := recordVerdict(cfg.AuditLog, cfgHash, cc.Party.CustomerCode, "generate", resp.Body, resp.Pipeline); err != nil {
			fmt.Fprintf(os.Stderr, "warning: audit record failed: %v\n", err)
		}
	}

	if err := printJSON(resp); err != nil {
		return err
	}
	if resp.Pipeline.ShouldBlock {
		fmt.Fprintln(os.Stderr, "draft blocked by guardrails; do not send")
		os.Exit(1)
	}
	return nil
}
