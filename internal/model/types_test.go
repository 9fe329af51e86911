package model

import "testing"

func TestTotalOutstanding(t *testing.T) {
	cc := CaseContext{
		Obligations: []Obligation{
			{InvoiceNumber: "INV-12345", AmountDue: 1500.00},
			{InvoiceNumber: "INV-12346", AmountDue: 2500.00},
		},
	}
	if got := cc.TotalOutstanding(); got != 4000.00 {
		t.Errorf("total = %v, want 4000", got)
	}
	var empty CaseContext
	if got := empty.TotalOutstanding(); got != 0 {
		t.Errorf("empty total = %v", got)
	}
}

func TestMaxDaysPastDue(t *testing.T) {
	cc := CaseContext{
		Obligations: []Obligation{
			{DaysPastDue: 12},
			{DaysPastDue: 30},
		},
	}
	if got := cc.MaxDaysPastDue(); got != 30 {
		t.Errorf("max = %d, want 30", got)
	}
	var empty CaseContext
	if got := empty.MaxDaysPastDue(); got != 0 {
		t.Errorf("empty max = %d", got)
	}
}

func TestValidClassifications(t *testing.T) {
	if !ValidClassifications[ClassPromiseToPay] {
		t.Error("PROMISE_TO_PAY should be valid")
	}
	if ValidClassifications["NOT_A_CLASS"] {
		t.Error("unknown classification should be invalid")
	}
	if len(ValidClassifications) != 13 {
		t.Errorf("classification count = %d, want 13", len(ValidClassifications))
	}
}

func TestValidTones(t *testing.T) {
	for _, tone := range []Tone{ToneFriendlyReminder, ToneProfessional, ToneFirm, ToneFinalNotice, ToneConcernedInquiry} {
		if !ValidTones[tone] {
			t.Errorf("%s should be valid", tone)
		}
	}
	if ValidTones["sarcastic"] {
		t.Error("unknown tone should be invalid")
	}
}
