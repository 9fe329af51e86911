package textscan

import (
	"testing"
	"time"
)

func TestInvoicesSurfacePatterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"prefixed", "Please settle INV-12345 today", []string{"12345"}},
		{"prefixed no dash", "Regarding INV12345", []string{"12345"}},
		{"invoice word", "Invoice #9921 remains open", []string{"9921"}},
		{"labeled", "invoice number: AB-7733", []string{"AB-7733"}},
		{"bare hash", "see #44556 for details", []string{"44556"}},
		{"short hash ignored", "item #123 is fine", nil},
		{"dedup", "INV-12345 and again INV-12345", []string{"12345"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Invoices(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Invoices(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Invoices(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAmountsFormats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []float64
	}{
		{"symbol with separators", "amount of £1,500.00 due", []float64{1500.00}},
		{"dollar", "pay $250 now", []float64{250}},
		{"euro", "total €3,000", []float64{3000}},
		{"code suffix", "1500.00 GBP outstanding", []float64{1500.00}},
		{"code prefix", "USD 42,000.50 owed", []float64{42000.50}},
		{"plain number ignored", "call us on 1500", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Amounts(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Amounts(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Amounts(%q)[%d] = %v, want %v", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStatedTotalsPhrases(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"The total outstanding is £4,000.00 across two invoices.", 4000},
		{"You owe us a total of £750.50.", 750.50},
		{"That is £1,200 in total.", 1200},
		{"A combined balance of GBP is due", 0}, // no number captured
		{"combined balance of £980.00 remains", 980},
	}

	for _, tt := range tests {
		got := StatedTotals(tt.text)
		if tt.want == 0 {
			if len(got) != 0 {
				t.Errorf("StatedTotals(%q) = %v, want none", tt.text, got)
			}
			continue
		}
		if len(got) == 0 || got[0] != tt.want {
			t.Errorf("StatedTotals(%q) = %v, want [%v]", tt.text, got, tt.want)
		}
	}
}

func TestDaysOverdueMentions(t *testing.T) {
	got := DaysOverdue("now 30 days overdue; the other is overdue by 12 days")
	if len(got) != 2 || got[0] != 30 || got[1] != 12 {
		t.Fatalf("DaysOverdue = %v, want [30 12]", got)
	}

	if got := DaysOverdue("due in 5 days"); len(got) != 0 {
		t.Errorf("future-due mention should not match, got %v", got)
	}
}

func TestDatesFormats(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"payment was due on 15/01/2024", "2024-01-15"},
		{"due date: 01-02-2024", "2024-02-01"},
		{"invoice due by 15th January 2024 at the latest", "2024-01-15"},
		{"3rd Mar 2025 was the due date", "2025-03-03"},
	}

	for _, tt := range tests {
		got := Dates(tt.text)
		if len(got) == 0 {
			t.Errorf("Dates(%q) found nothing, want %s", tt.text, tt.want)
			continue
		}
		if got[0].Format("2006-01-02") != tt.want {
			t.Errorf("Dates(%q)[0] = %s, want %s", tt.text, got[0].Format("2006-01-02"), tt.want)
		}
	}
}

func TestParseDateDayFirst(t *testing.T) {
	// 05/01/2024 must parse day-first: 5 January, not 1 May.
	d, ok := ParseDate("05/01/2024")
	if !ok {
		t.Fatal("ParseDate failed")
	}
	if d.Month() != time.January || d.Day() != 5 {
		t.Errorf("got %s, want 2024-01-05", d.Format("2006-01-02"))
	}
}

func TestEmailsDedupAndLowercase(t *testing.T) {
	got := Emails("Contact Jane.Doe@Example.com or jane.doe@example.com today")
	if len(got) != 1 || got[0] != "jane.doe@example.com" {
		t.Fatalf("Emails = %v, want [jane.doe@example.com]", got)
	}
}

func TestParseAmountSeparators(t *testing.T) {
	if v, ok := ParseAmount("1,234,567.89"); !ok || v != 1234567.89 {
		t.Errorf("ParseAmount = %v %v, want 1234567.89 true", v, ok)
	}
	if _, ok := ParseAmount("not-a-number"); ok {
		t.Error("expected parse failure")
	}
}
