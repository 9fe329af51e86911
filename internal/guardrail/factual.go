package guardrail

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/solvix/draftgate/internal/model"
	"github.com/solvix/draftgate/internal/textscan"
)

// amountTolerance is the absolute difference under which two monetary
// amounts are considered the same figure.
const amountTolerance = 0.01

// FactualGrounding catches hallucinated invoice numbers and monetary
// amounts: every concrete figure in the draft must be traceable to an
// obligation in the case context.
type FactualGrounding struct {
	base
}

// NewFactualGrounding constructs the guardrail at CRITICAL severity.
func NewFactualGrounding() *FactualGrounding {
	return &FactualGrounding{base{name: "factual_grounding", severity: SeverityCritical}}
}

// Validate runs the invoice and amount checks unconditionally and returns
// one result per check.
func (g *FactualGrounding) Validate(ctx context.Context, output string, cc *model.CaseContext, extras Extras) ([]Result, error) {
	return []Result{
		g.checkInvoices(output, cc),
		g.checkAmounts(output, cc),
	}, nil
}

func (g *FactualGrounding) checkInvoices(output string, cc *model.CaseContext) Result {
	validInvoices := make(map[string]bool, len(cc.Obligations))
	var validList []string
	// Numeric substrings of valid identifiers tolerate formatting drift
	// ("INV-12345" in context, "12345" in the draft).
	validNumeric := make(map[string]bool, len(cc.Obligations))

	for _, o := range cc.Obligations {
		inv := strings.ToUpper(o.InvoiceNumber)
		if inv == "" || validInvoices[inv] {
			continue
		}
		validInvoices[inv] = true
		validList = append(validList, inv)
		if num := digitRun(inv); num != "" {
			validNumeric[num] = true
		}
	}

	found := textscan.Invoices(output)

	// Exact mentions of valid identifiers count as validated even when no
	// surface pattern captured them.
	outputUpper := strings.ToUpper(output)
	validated := make(map[string]bool)
	for _, inv := range validList {
		if strings.Contains(outputUpper, inv) {
			validated[inv] = true
		}
	}

	var invalid []string
	for _, f := range found {
		if validInvoices[f] || validNumeric[f] {
			validated[f] = true
			continue
		}
		// Partial identifier of a valid invoice ("12345" inside "INV-12345").
		partial := false
		for _, inv := range validList {
			if strings.Contains(inv, f) {
				partial = true
				break
			}
		}
		if partial {
			validated[f] = true
			continue
		}
		invalid = append(invalid, f)
	}

	if len(invalid) > 0 {
		return g.fail(
			"invoice numbers not found in context",
			validList, invalid,
			map[string]any{
				"invalid_invoices": invalid,
				"valid_invoices":   validList,
			},
		)
	}

	return g.pass("all invoice numbers validated", map[string]any{
		"validated_invoices": sortedKeys(validated),
	})
}

func (g *FactualGrounding) checkAmounts(output string, cc *model.CaseContext) Result {
	valid := make([]float64, 0, 2*len(cc.Obligations)+1)
	for _, o := range cc.Obligations {
		valid = append(valid, o.AmountDue, o.OriginalAmount)
	}
	total := cc.TotalOutstanding()
	valid = append(valid, total)

	found := textscan.Amounts(output)

	var invalid []float64
	for _, amount := range found {
		if !amountMatchesAny(amount, valid) {
			invalid = append(invalid, amount)
		}
	}

	if len(invalid) > 0 {
		return g.fail(
			"monetary amounts not found in context",
			valid, invalid,
			map[string]any{
				"invalid_amounts":   invalid,
				"valid_amounts":     valid,
				"total_outstanding": total,
			},
		)
	}

	return g.pass("all monetary amounts validated", map[string]any{
		"validated_amounts": found,
		"total_outstanding": total,
	})
}

// amountMatchesAny applies the three tolerance tests against each valid
// amount: equal after rounding to 2 decimals, equal after integer
// truncation, or absolute difference under amountTolerance.
func amountMatchesAny(amount float64, valid []float64) bool {
	for _, v := range valid {
		if round2(amount) == round2(v) {
			return true
		}
		if amount == math.Trunc(amount) && int64(amount) == int64(v) {
			return true
		}
		if math.Abs(amount-v) < amountTolerance {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// digitRun returns the first run of digits in s, or "".
func digitRun(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Deterministic result details regardless of map iteration order.
	sort.Strings(out)
	return out
}
