package guardrail

import (
	"fmt"
	"strings"
)

// Feedback renders a pipeline verdict as a natural-language correction block
// for the next generation attempt: one line per failing check with its
// guardrail name and message, plus expected/found evidence when present.
// Returns "" when there is nothing to correct.
func Feedback(result PipelineResult) string {
	failures := result.Failures()
	if len(failures) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n**CRITICAL: Your previous draft had validation errors. Fix these issues:**\n")
	for _, f := range failures {
		fmt.Fprintf(&b, "\n- %s: %s", f.Guardrail, f.Message)
		if f.Expected != nil {
			fmt.Fprintf(&b, "\n  Expected: %v", f.Expected)
		}
		if f.Found != nil {
			fmt.Fprintf(&b, "\n  Found: %v", f.Found)
		}
	}
	b.WriteString("\n\nEnsure the new draft addresses ALL validation issues listed above.")
	return b.String()
}
