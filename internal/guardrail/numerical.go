package guardrail

import (
	"context"
	"math"
	"sort"

	"github.com/solvix/draftgate/internal/model"
	"github.com/solvix/draftgate/internal/textscan"
)

// daysTolerance absorbs clock drift between when days_past_due was computed
// upstream and when the draft is validated.
const daysTolerance = 1

// NumericalConsistency catches arithmetic contradictions: a stated total
// that is not the sum of the obligations, or a days-overdue figure that
// matches no obligation.
type NumericalConsistency struct {
	base
}

// NewNumericalConsistency constructs the guardrail at CRITICAL severity.
func NewNumericalConsistency() *NumericalConsistency {
	return &NumericalConsistency{base{name: "numerical_consistency", severity: SeverityCritical}}
}

// Validate runs the total and days-overdue checks and returns one result per check.
func (g *NumericalConsistency) Validate(ctx context.Context, output string, cc *model.CaseContext, extras Extras) ([]Result, error) {
	return []Result{
		g.checkTotals(output, cc),
		g.checkDaysOverdue(output, cc),
	}, nil
}

func (g *NumericalConsistency) checkTotals(output string, cc *model.CaseContext) Result {
	calculated := cc.TotalOutstanding()
	stated := textscan.StatedTotals(output)

	for _, s := range stated {
		if math.Abs(s-calculated) > amountTolerance {
			obligations := make([]map[string]any, 0, len(cc.Obligations))
			for _, o := range cc.Obligations {
				obligations = append(obligations, map[string]any{
					"invoice": o.InvoiceNumber,
					"amount":  o.AmountDue,
				})
			}
			return g.fail(
				"stated total does not match calculated total",
				calculated, s,
				map[string]any{
					"stated_total":     s,
					"calculated_total": calculated,
					"difference":       math.Abs(s - calculated),
					"obligations":      obligations,
				},
			)
		}
	}

	return g.pass("total calculations validated", map[string]any{
		"calculated_total": calculated,
		"stated_totals":    stated,
	})
}

func (g *NumericalConsistency) checkDaysOverdue(output string, cc *model.CaseContext) Result {
	validSet := make(map[int]bool, len(cc.Obligations)+1)
	for _, o := range cc.Obligations {
		validSet[o.DaysPastDue] = true
	}
	// The maximum is the figure drafts most often cite ("your oldest invoice
	// is N days overdue").
	validSet[cc.MaxDaysPastDue()] = true

	validDays := make([]int, 0, len(validSet))
	for d := range validSet {
		validDays = append(validDays, d)
	}
	sort.Ints(validDays)

	for _, mentioned := range textscan.DaysOverdue(output) {
		if mentioned <= 0 {
			continue
		}
		ok := false
		for _, v := range validDays {
			if abs(mentioned-v) <= daysTolerance {
				ok = true
				break
			}
		}
		if !ok {
			return g.fail(
				"days overdue not found in context",
				validDays, mentioned,
				map[string]any{
					"mentioned_days": mentioned,
					"valid_days":     validDays,
				},
			)
		}
	}

	return g.pass("days overdue calculations validated", map[string]any{
		"valid_days": validDays,
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
