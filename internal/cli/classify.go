package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/engine"
	"github.com/solvix/draftgate/internal/maildrop"
	"github.com/solvix/draftgate/internal/model"
)

var (
	classifyContext string
	classifyEmail   string
)

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringVar(&classifyContext, "context", "", "Path to case context YAML (required)")
	classifyCmd.Flags().StringVar(&classifyEmail, "email", "-", "Path to raw RFC-2822 email, or - for stdin")
	classifyCmd.MarkFlagRequired("context")
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify an inbound debtor email",
	Long: "Parses a raw email and asks the configured LLM to classify the debtor's\n" +
		"response (promise to pay, dispute, hardship, unsubscribe, ...) and extract\n" +
		"structured facts such as promise dates and amounts.",
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := providerClient(cfg)
	if err != nil {
		return err
	}

	cc, err := loadContext(classifyContext)
	if err != nil {
		return err
	}
	raw, err := readInput(classifyEmail)
	if err != nil {
		return fmt.Errorf("read email: %w", err)
	}
	parsed, err := maildrop.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse email: %w", err)
	}

	classifier := engine.NewClassifier(client)
	resp, err := classifier.Classify(cmd.Context(), engine.ClassifyRequest{
		Email: model.Email{
			Subject:     parsed.Subject,
			Body:        parsed.Body,
			FromAddress: parsed.From,
			FromName:    parsed.FromName,
		},
		Context: cc,
	})
	if err != nil {
		return err
	}

	return printJSON(resp)
}
