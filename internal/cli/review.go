package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/daemon"
)

var rejectReason string

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewRejectCmd)
	reviewRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Why the draft is rejected")
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review drafts waiting for human approval",
	Long:  "Validated drafts wait in the outbox until a person approves or rejects\nthem. Unreviewed drafts expire after the configured TTL.",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List drafts pending review",
	RunE:  runReviewList,
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <job-id>",
	Short: "Approve a pending draft for sending",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewApprove,
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <job-id>",
	Short: "Reject a pending draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewReject,
}

func reviewGateway() (*daemon.Gateway, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return daemon.NewGateway(cfg.Daemon.Outbox, cfg.Daemon.State, cfg.Daemon.ReviewTTL.Std()), nil
}

func runReviewList(cmd *cobra.Command, args []string) error {
	gw, err := reviewGateway()
	if err != nil {
		return err
	}

	drafts, err := gw.PendingDrafts()
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		fmt.Println("No drafts pending review.")
		return nil
	}

	fmt.Printf("%-30s %-12s %-40s %s\n", "JOB", "PARTY", "SUBJECT", "EXPIRES")
	for _, d := range drafts {
		fmt.Printf("%-30s %-12s %-40s %s\n",
			d.ID,
			d.PartyCode,
			truncate(d.Subject, 40),
			d.ExpiresAt.Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func runReviewApprove(cmd *cobra.Command, args []string) error {
	gw, err := reviewGateway()
	if err != nil {
		return err
	}
	if err := gw.Approve(args[0]); err != nil {
		return err
	}
	fmt.Printf("Approved %q\n", args[0])
	return nil
}

func runReviewReject(cmd *cobra.Command, args []string) error {
	gw, err := reviewGateway()
	if err != nil {
		return err
	}
	if err := gw.Reject(args[0], rejectReason); err != nil {
		return err
	}
	fmt.Printf("Rejected %q\n", args[0])
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
