package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/engine"
)

var (
	gatesContext     string
	gatesAction      string
	gatesTone        string
	gatesUnsubscribe bool
)

func init() {
	rootCmd.AddCommand(gatesCmd)
	gatesCmd.Flags().StringVar(&gatesContext, "context", "", "Path to case context YAML (required)")
	gatesCmd.Flags().StringVar(&gatesAction, "action", "send_email", "Proposed action (send_email|create_case|escalate|close_case)")
	gatesCmd.Flags().StringVar(&gatesTone, "tone", "", "Proposed tone for send_email actions")
	gatesCmd.Flags().BoolVar(&gatesUnsubscribe, "unsubscribe", false, "Debtor has asked to stop contact")
	gatesCmd.MarkFlagRequired("context")
}

var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "Evaluate send gates for a proposed action",
	Long: "Asks the configured LLM whether a proposed action respects touch caps,\n" +
		"contact windows, hold states, and unsubscribe requests.\n\n" +
		"Exit code 0 when the action is allowed, 1 when refused.",
	RunE: runGates,
}

func runGates(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := providerClient(cfg)
	if err != nil {
		return err
	}

	cc, err := loadContext(gatesContext)
	if err != nil {
		return err
	}

	evaluator := engine.NewGateEvaluator(client)
	resp, err := evaluator.Evaluate(cmd.Context(), engine.GateRequest{
		Context:              cc,
		ProposedAction:       gatesAction,
		ProposedTone:         gatesTone,
		UnsubscribeRequested: gatesUnsubscribe,
	})
	if err != nil {
		return err
	}

	if err := printJSON(resp); err != nil {
		return err
	}
	if !resp.Allowed {
		os.Exit(1)
	}
	return nil
}
