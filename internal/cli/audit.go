package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/solvix/draftgate/internal/audit"
)

var (
	tailLines     int
	historyParty  string
	historyFrom   string
	historyTo     string
	historyFormat string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditHistoryCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditHistoryCmd.Flags().StringVar(&historyParty, "party", "", "Filter by party code")
	auditHistoryCmd.Flags().StringVar(&historyFrom, "from", "", "Oldest timestamp to include (RFC 3339)")
	auditHistoryCmd.Flags().StringVar(&historyTo, "to", "", "Newest timestamp to include (RFC 3339)")
	auditHistoryCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verdict log operations",
	Long:  "Commands for verifying and inspecting the hash-chained verdict log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of a verdict log",
	Long: "Walks the JSONL verdict log and validates that every entry's prev_hash\n" +
		"matches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.\n" +
		"Without an argument, verifies the configured audit log.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Show recent verdict log entries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditTail,
}

var auditHistoryCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "Show the verdict timeline for a party",
	Long: "Renders verdicts as a timeline with per-decision counts and the minimum\n" +
		"factual accuracy over the selected range.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditHistory,
}

// auditPath resolves the log path from the argument or the config file.
func auditPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.AuditLog == "" {
		return "", fmt.Errorf("no audit log configured and no path given")
	}
	return cfg.AuditLog, nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}
	result := audit.Verify(path)
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open verdict log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read verdict log: %w", err)
	}

	start := len(lines) - tailLines
	if start < 0 {
		start = 0
	}

	for _, line := range lines[start:] {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			fmt.Println(line)
			continue
		}
		out, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Println(string(out))
	}

	return nil
}

func runAuditHistory(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}

	filter := audit.HistoryFilter{PartyCode: historyParty}
	if historyFrom != "" {
		t, err := time.Parse(time.RFC3339, historyFrom)
		if err != nil {
			return fmt.Errorf("parse --from: %w", err)
		}
		filter.From = t
	}
	if historyTo != "" {
		t, err := time.Parse(time.RFC3339, historyTo)
		if err != nil {
			return fmt.Errorf("parse --to: %w", err)
		}
		filter.To = t
	}

	result, err := audit.History(path, filter)
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	fmt.Print(audit.FormatTimeline(result))
	return nil
}
