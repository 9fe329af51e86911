package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solvix/draftgate/internal/model"
)

func testContext() *model.CaseContext {
	return &model.CaseContext{
		Party: model.Party{
			PartyID:      "p-1",
			CustomerCode: "ACME-0042",
			Name:         "Acme Trading Ltd",
			Currency:     "GBP",
		},
		Obligations: []model.Obligation{
			{InvoiceNumber: "INV-12345", OriginalAmount: 1500.00, AmountDue: 1500.00, DueDate: "2024-01-15", DaysPastDue: 30},
			{InvoiceNumber: "INV-12346", OriginalAmount: 2500.00, AmountDue: 2500.00, DueDate: "2024-02-01", DaysPastDue: 12},
		},
	}
}

const cleanDraft = "Dear Acme Trading Ltd,\n\nYour invoice INV-12345 for £1,500.00 is now 30 days overdue. Total outstanding is £4,000.00.\n\nKind regards"

const fabricatedDraft = "Dear Acme Trading Ltd,\n\nYour invoice INV-99999 is overdue.\n\nKind regards"

func TestAllCasesPass(t *testing.T) {
	s := &Scenario{
		Name: "basic grounding",
		Cases: []Case{
			{Draft: cleanDraft, Expect: "pass"},
			{Draft: fabricatedDraft, Expect: "block", Blocking: []string{"factual_grounding"}},
		},
	}

	result := Run(s, testContext())
	if result.Failed != 0 {
		t.Errorf("expected 0 failures, got %d: %+v", result.Failed, result.Cases)
	}
	if result.Passed != 2 {
		t.Errorf("expected 2 passed, got %d", result.Passed)
	}
}

func TestFailedAssertionDetected(t *testing.T) {
	s := &Scenario{
		Name: "wrong expectation",
		Cases: []Case{
			{Draft: cleanDraft, Expect: "block"},
		},
	}

	result := Run(s, testContext())
	if result.Failed != 1 {
		t.Fatalf("expected 1 failure, got %d", result.Failed)
	}
	cr := result.Cases[0]
	if cr.Actual != "pass" {
		t.Errorf("actual = %q", cr.Actual)
	}
	if cr.Reason != "all guardrails passed" {
		t.Errorf("reason = %q", cr.Reason)
	}
}

func TestWrongBlockingNameFails(t *testing.T) {
	s := &Scenario{
		Name: "wrong blocking guardrail",
		Cases: []Case{
			{Draft: fabricatedDraft, Expect: "block", Blocking: []string{"temporal_consistency"}},
		},
	}

	result := Run(s, testContext())
	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", result.Failed)
	}
}

func TestFailFastEvaluatedCount(t *testing.T) {
	s := &Scenario{
		Name:     "short circuit",
		FailFast: true,
		Cases: []Case{
			{
				Draft:     "Dear Acme Trading Ltd,\n\nYour invoice INV-99999 is overdue. Total outstanding is £5,000.00.\n\nKind regards",
				Expect:    "block",
				Blocking:  []string{"factual_grounding"},
				Evaluated: 2,
			},
		},
	}

	result := Run(s, testContext())
	if result.Failed != 0 {
		t.Errorf("expected fail-fast case to pass, got %+v", result.Cases)
	}
}

func TestPromiseOffsetResolvesRelativeDate(t *testing.T) {
	past := -1
	distant := 120
	nextWeek := 7

	s := &Scenario{
		Name: "promise dates",
		Cases: []Case{
			{Draft: cleanDraft, Expect: "block", Blocking: []string{"temporal_consistency"},
				Extracted: &Extracted{PromiseDateOffsetDays: &past}},
			{Draft: cleanDraft, Expect: "block", Blocking: []string{"temporal_consistency"},
				Extracted: &Extracted{PromiseDateOffsetDays: &distant}},
			{Draft: cleanDraft, Expect: "pass",
				Extracted: &Extracted{PromiseDateOffsetDays: &nextWeek}},
		},
	}

	result := Run(s, testContext())
	if result.Failed != 0 {
		t.Errorf("expected all promise cases to pass, got %+v", result.Cases)
	}
}

func TestLoadAndRun(t *testing.T) {
	dir := t.TempDir()

	contextYAML := `party:
  customer_code: ACME-0042
  name: Acme Trading Ltd
  currency: GBP
obligations:
  - invoice_number: INV-12345
    amount_due: 1500.00
    original_amount: 1500.00
    due_date: "2024-01-15"
    days_past_due: 30
  - invoice_number: INV-12346
    amount_due: 2500.00
    original_amount: 2500.00
    due_date: "2024-02-01"
    days_past_due: 12
`
	if err := os.WriteFile(filepath.Join(dir, "acme.yaml"), []byte(contextYAML), 0644); err != nil {
		t.Fatal(err)
	}

	scenarioYAML := `name: file scenario
context_file: acme.yaml
cases:
  - name: fabricated invoice
    draft: |
      Dear Acme Trading Ltd,

      Your invoice INV-99999 is overdue.
    expect: block
    blocking: [factual_grounding]
`
	path := filepath.Join(dir, "s.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := LoadAndRun(path)
	if err != nil {
		t.Fatal(err)
	}
	if result.File != path {
		t.Errorf("file = %q", result.File)
	}
	if result.Failed != 0 {
		t.Errorf("expected case to pass, got %+v", result.Cases)
	}
}

func TestLoadAndRunMissingContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	if err := os.WriteFile(path, []byte("name: bare\ncases: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadAndRun(path); err == nil {
		t.Error("expected error for missing context")
	}
}

func TestFormatTextReportsFailures(t *testing.T) {
	results := []*RunResult{
		{Name: "ok", Total: 2, Passed: 2},
		{Name: "broken", Total: 1, Failed: 1, Cases: []CaseResult{
			{Index: 1, Name: "bad case", Expected: "pass", Actual: "block", Reason: "factual_grounding: invoice numbers not found in context"},
		}},
	}

	out := FormatText(results)
	for _, want := range []string{"PASS  ok (2/2)", "FAIL  broken (0/1)", "bad case", "expected pass, got block", "2 of 3 cases passed.", "1 of 2 scenarios failed."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
