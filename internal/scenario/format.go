package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders run results the way an operator reads them in CI: one
// line per scenario, failing cases indented beneath, totals at the bottom.
func FormatText(results []*RunResult) string {
	var b strings.Builder

	plural := "s"
	if len(results) == 1 {
		plural = ""
	}
	fmt.Fprintf(&b, "Checking %d scenario file%s...\n\n", len(results), plural)

	var cases, passed, failedFiles int
	for _, r := range results {
		cases += r.Total
		passed += r.Passed

		if r.Failed > 0 {
			failedFiles++
			fmt.Fprintf(&b, "  FAIL  %s (%d/%d)\n", r.Name, r.Passed, r.Total)
			writeFailedCases(&b, r.Cases)
			continue
		}
		fmt.Fprintf(&b, "  PASS  %s (%d/%d)\n", r.Name, r.Passed, r.Total)
	}

	fmt.Fprintf(&b, "\n%d of %d cases passed.", passed, cases)
	if failedFiles > 0 {
		fmt.Fprintf(&b, " %d of %d scenarios failed.", failedFiles, len(results))
	}
	b.WriteString("\n")

	return b.String()
}

func writeFailedCases(b *strings.Builder, cases []CaseResult) {
	for _, c := range cases {
		if c.Passed {
			continue
		}
		label := c.Name
		if label == "" {
			label = fmt.Sprintf("case %d", c.Index)
		}
		fmt.Fprintf(b, "    FAIL  %-30s expected %s, got %s (%s)\n",
			label, c.Expected, c.Actual, c.Reason)
	}
}

// FormatJSON renders run results as indented JSON for machine consumers.
func FormatJSON(results []*RunResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}
