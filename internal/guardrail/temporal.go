package guardrail

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/solvix/draftgate/internal/model"
	"github.com/solvix/draftgate/internal/textscan"
)

// maxPromiseHorizonDays is how far ahead a promise date may sit before it is
// flagged as unusually distant.
const maxPromiseHorizonDays = 90

// dueDateToleranceDays is the slack when matching a mentioned due date
// against an obligation's due date.
const dueDateToleranceDays = 1

// TemporalConsistency catches impossible commitments and stale date
// references: promise dates in the past, promise dates unreasonably far out,
// and due-date mentions that match no obligation.
//
// HIGH, not CRITICAL: a date discrepancy blocks today, but is kept a
// distinct severity so blocking policy can be tuned without touching the
// invoice/amount checks.
type TemporalConsistency struct {
	base

	// now is the clock used by the promise-date check. Overridable in tests;
	// this check is the declared exception to input-only determinism.
	now func() time.Time
}

// NewTemporalConsistency constructs the guardrail at HIGH severity.
func NewTemporalConsistency() *TemporalConsistency {
	return &TemporalConsistency{
		base: base{name: "temporal_consistency", severity: SeverityHigh},
		now:  time.Now,
	}
}

// Validate checks the extracted promise date (when present) and all due-date
// mentions in the draft.
func (g *TemporalConsistency) Validate(ctx context.Context, output string, cc *model.CaseContext, extras Extras) ([]Result, error) {
	var results []Result
	if extras.Extracted != nil {
		results = append(results, g.checkPromiseDate(extras.Extracted))
	}
	results = append(results, g.checkDueDates(output, cc))
	return results, nil
}

func (g *TemporalConsistency) checkPromiseDate(extracted *model.ExtractedData) Result {
	if extracted.PromiseDate == nil {
		return g.pass("no promise date to validate", nil)
	}

	today := dateOnly(g.now())
	promise := dateOnly(*extracted.PromiseDate)

	// Today is an acceptable promise date; only strictly-past fails.
	if promise.Before(today) {
		daysPast := int(today.Sub(promise).Hours() / 24)
		return g.fail(
			fmt.Sprintf("promise date %s is %d days in the past", promise.Format("2006-01-02"), daysPast),
			"date in future or today", promise.Format("2006-01-02"),
			map[string]any{
				"promise_date": promise.Format("2006-01-02"),
				"today":        today.Format("2006-01-02"),
				"days_past":    daysPast,
			},
		)
	}

	daysFuture := int(promise.Sub(today).Hours() / 24)
	if daysFuture > maxPromiseHorizonDays {
		return g.fail(
			fmt.Sprintf("promise date %s is %d days in the future (unusual)", promise.Format("2006-01-02"), daysFuture),
			fmt.Sprintf("date within %d days", maxPromiseHorizonDays), promise.Format("2006-01-02"),
			map[string]any{
				"promise_date": promise.Format("2006-01-02"),
				"days_future":  daysFuture,
			},
		)
	}

	return g.pass("promise date is valid", map[string]any{
		"promise_date": promise.Format("2006-01-02"),
		"days_future":  daysFuture,
	})
}

func (g *TemporalConsistency) checkDueDates(output string, cc *model.CaseContext) Result {
	var validDates []time.Time
	for _, o := range cc.Obligations {
		if d, err := time.Parse("2006-01-02", o.DueDate); err == nil {
			validDates = append(validDates, d)
		}
	}

	validStrs := make([]string, 0, len(validDates))
	for _, d := range validDates {
		validStrs = append(validStrs, d.Format("2006-01-02"))
	}
	sort.Strings(validStrs)

	for _, mentioned := range textscan.Dates(output) {
		if !dateMatchesAny(mentioned, validDates) {
			return g.fail(
				fmt.Sprintf("due date %s not found in obligations", mentioned.Format("2006-01-02")),
				validStrs, mentioned.Format("2006-01-02"),
				map[string]any{
					"mentioned_date": mentioned.Format("2006-01-02"),
					"valid_dates":    validStrs,
				},
			)
		}
	}

	return g.pass("due dates validated", map[string]any{
		"valid_dates": validStrs,
	})
}

// dateMatchesAny reports whether mentioned is within dueDateToleranceDays of
// any valid due date.
func dateMatchesAny(mentioned time.Time, valid []time.Time) bool {
	m := dateOnly(mentioned)
	for _, v := range valid {
		diff := m.Sub(dateOnly(v)).Hours() / 24
		if diff < 0 {
			diff = -diff
		}
		if diff <= dueDateToleranceDays {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
