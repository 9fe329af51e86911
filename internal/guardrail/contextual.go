package guardrail

import (
	"context"
	"fmt"
	"strings"

	"github.com/solvix/draftgate/internal/model"
)

// brokenPromiseThreshold is how many broken promises warrant a history
// reference in the draft.
const brokenPromiseThreshold = 2

// Phrase lists are the tone contract: matching is lowercase substring.
var (
	// Payment-demand language, inappropriate during an active dispute.
	demandPhrases = []string{
		"pay immediately", "pay now", "immediate payment", "pay in full",
		"demand payment", "must pay", "required to pay",
		"failure to pay will result", "legal action", "collection agency",
	}

	// Language acknowledging a dispute.
	disputePhrases = []string{
		"dispute", "under review", "investigating", "looking into",
		"resolve", "concern", "issue",
	}

	// Harsh or legalistic language, inappropriate for hardship cases.
	harshPhrases = []string{
		"failure to pay", "will be forced", "no choice but",
		"legal consequences", "must pay immediately", "demand", "threaten",
	}

	// Empathetic language expected in hardship cases.
	empatheticPhrases = []string{
		"understand", "difficult", "challenging", "work with you",
		"payment plan", "options", "help", "support", "flexibility",
		"circumstances",
	}

	// Language referencing prior commitments.
	historyPhrases = []string{
		"previous", "history", "past", "again", "before",
		"commitment", "promise", "assured",
	}
)

// ContextualCoherence applies tone-appropriateness heuristics for dispute,
// hardship, and broken-promise states. MEDIUM severity: failures flag the
// draft for review but never block it.
type ContextualCoherence struct {
	base
}

// NewContextualCoherence constructs the guardrail at MEDIUM severity.
func NewContextualCoherence() *ContextualCoherence {
	return &ContextualCoherence{base{name: "contextual_coherence", severity: SeverityMedium}}
}

// Validate runs only the checks whose case-state condition applies; when
// none apply it returns a single unconditional pass.
func (g *ContextualCoherence) Validate(ctx context.Context, output string, cc *model.CaseContext, extras Extras) ([]Result, error) {
	lower := strings.ToLower(output)

	var results []Result
	if cc.ActiveDispute {
		results = append(results, g.checkDisputeAwareness(lower))
	}
	if cc.HardshipIndicated {
		results = append(results, g.checkHardshipTone(lower))
	}
	if cc.BrokenPromisesCount > 0 {
		results = append(results, g.checkPromiseAwareness(lower, cc.BrokenPromisesCount))
	}

	if len(results) == 0 {
		results = append(results, g.pass("no special context conditions to validate", nil))
	}
	return results, nil
}

func (g *ContextualCoherence) checkDisputeAwareness(lower string) Result {
	foundDemands := matchPhrases(lower, demandPhrases)
	acknowledges := len(matchPhrases(lower, disputePhrases)) > 0

	if len(foundDemands) > 0 && !acknowledges {
		return g.fail(
			"draft demands payment during active dispute without acknowledgment",
			"acknowledge dispute, avoid payment demands", foundDemands,
			map[string]any{
				"demand_phrases_found": foundDemands,
				"dispute_acknowledged": false,
			},
		)
	}

	if !acknowledges {
		return g.fail(
			"draft does not acknowledge active dispute",
			"reference to dispute or investigation", "no dispute acknowledgment",
			map[string]any{"dispute_acknowledged": false},
		)
	}

	return g.pass("draft appropriately handles dispute context", map[string]any{
		"dispute_acknowledged": true,
	})
}

func (g *ContextualCoherence) checkHardshipTone(lower string) Result {
	foundHarsh := matchPhrases(lower, harshPhrases)
	foundEmpathetic := matchPhrases(lower, empatheticPhrases)

	if len(foundHarsh) > 0 && len(foundEmpathetic) == 0 {
		return g.fail(
			"draft uses harsh tone for hardship case",
			"empathetic language, payment options", foundHarsh,
			map[string]any{
				"harsh_phrases_found":      foundHarsh,
				"empathetic_phrases_found": foundEmpathetic,
			},
		)
	}

	if len(foundEmpathetic) == 0 {
		return g.fail(
			"draft lacks empathetic language for hardship case",
			"understanding tone, payment options", "no empathetic phrases detected",
			map[string]any{"empathetic_count": 0},
		)
	}

	return g.pass("draft uses appropriate tone for hardship case", map[string]any{
		"empathetic_phrases": foundEmpathetic,
	})
}

func (g *ContextualCoherence) checkPromiseAwareness(lower string, brokenCount int) Result {
	if brokenCount < brokenPromiseThreshold {
		return g.pass("no significant promise history to reference", map[string]any{
			"broken_promises_count": brokenCount,
		})
	}

	if len(matchPhrases(lower, historyPhrases)) == 0 {
		return g.fail(
			fmt.Sprintf("draft does not reference %d broken promises", brokenCount),
			"acknowledgment of payment history", "no history reference",
			map[string]any{
				"broken_promises_count": brokenCount,
				"history_acknowledged":  false,
			},
		)
	}

	return g.pass("draft acknowledges payment history", map[string]any{
		"broken_promises_count": brokenCount,
		"history_acknowledged":  true,
	})
}

// matchPhrases returns the phrases present in lower as substrings.
func matchPhrases(lower string, phrases []string) []string {
	var found []string
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			found = append(found, p)
		}
	}
	return found
}
