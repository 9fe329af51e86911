package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a HistoryResult as a human-readable text timeline.
func FormatTimeline(result *HistoryResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Party: %s | No entries found.\n", result.PartyCode)
	}

	var b strings.Builder

	first := formatDateTime(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	b.WriteString(fmt.Sprintf("Party: %s | %s–%s UTC\n", result.PartyCode, first, last))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		blocking := ""
		if len(e.Blocking) > 0 {
			blocking = "  [" + strings.Join(e.Blocking, ",") + "]"
		}
		b.WriteString(fmt.Sprintf("%-10s %-7s %-10s acc=%.2f %-14s%s\n",
			formatTimeOnly(e.Timestamp), strings.ToUpper(e.Decision),
			truncate(e.Operation, 10), e.FactualAccuracy,
			truncate(e.DraftSHA, 14), blocking))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a HistoryResult as indented JSON.
func FormatJSON(result *HistoryResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal history result: %w", err)
	}
	return string(data), nil
}

func formatDateTime(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s HistorySummary) string {
	parts := []string{}
	if s.PassCount > 0 {
		parts = append(parts, fmt.Sprintf("%d pass", s.PassCount))
	}
	if s.WarnCount > 0 {
		parts = append(parts, fmt.Sprintf("%d warn", s.WarnCount))
	}
	if s.BlockCount > 0 {
		parts = append(parts, fmt.Sprintf("%d block", s.BlockCount))
	}
	return fmt.Sprintf("Summary: %s | Min accuracy: %.2f\n",
		strings.Join(parts, ", "), s.MinAccuracy)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
