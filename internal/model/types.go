// Package model defines the case-context snapshot and email value types
// shared across the engine. Everything here is request-scoped and read-only:
// a CaseContext is the factual ground truth a draft is validated against,
// supplied by the upstream accounting integration and never mutated.
package model

import "time"

// Classification is the category assigned to an inbound debtor email.
type Classification string

const (
	ClassInsolvency   Classification = "INSOLVENCY"
	ClassDispute      Classification = "DISPUTE"
	ClassAlreadyPaid  Classification = "ALREADY_PAID"
	ClassUnsubscribe  Classification = "UNSUBSCRIBE"
	ClassHostile      Classification = "HOSTILE"
	ClassPromiseToPay Classification = "PROMISE_TO_PAY"
	ClassHardship     Classification = "HARDSHIP"
	ClassPlanRequest  Classification = "PLAN_REQUEST"
	ClassRedirect     Classification = "REDIRECT"
	ClassRequestInfo  Classification = "REQUEST_INFO"
	ClassOutOfOffice  Classification = "OUT_OF_OFFICE"
	ClassCooperative  Classification = "COOPERATIVE"
	ClassUnclear      Classification = "UNCLEAR"
)

// ValidClassifications is the accepted set, used to reject malformed LLM output.
var ValidClassifications = map[Classification]bool{
	ClassInsolvency: true, ClassDispute: true, ClassAlreadyPaid: true,
	ClassUnsubscribe: true, ClassHostile: true, ClassPromiseToPay: true,
	ClassHardship: true, ClassPlanRequest: true, ClassRedirect: true,
	ClassRequestInfo: true, ClassOutOfOffice: true, ClassCooperative: true,
	ClassUnclear: true,
}

// Tone selects the register of an outbound collection draft.
type Tone string

const (
	ToneFriendlyReminder Tone = "friendly_reminder"
	ToneProfessional     Tone = "professional"
	ToneFirm             Tone = "firm"
	ToneFinalNotice      Tone = "final_notice"
	ToneConcernedInquiry Tone = "concerned_inquiry"
)

// ValidTones is the accepted set of draft tones.
var ValidTones = map[Tone]bool{
	ToneFriendlyReminder: true,
	ToneProfessional:     true,
	ToneFirm:             true,
	ToneFinalNotice:      true,
	ToneConcernedInquiry: true,
}

// Party identifies the debtor being collected from. IDs come from external
// accounting software (Sage etc.), so no format is assumed.
type Party struct {
	PartyID      string `json:"party_id" yaml:"party_id"`
	CustomerCode string `json:"customer_code" yaml:"customer_code"`
	Name         string `json:"name" yaml:"name"`
	Currency     string `json:"currency" yaml:"currency"`
	OnHold       bool   `json:"on_hold,omitempty" yaml:"on_hold,omitempty"`
	Tier         string `json:"relationship_tier,omitempty" yaml:"relationship_tier,omitempty"`
	IsVerified   bool   `json:"is_verified" yaml:"is_verified"`
}

// Behavior summarizes historical payment behavior.
type Behavior struct {
	Segment       string  `json:"segment,omitempty" yaml:"segment,omitempty"`
	OnTimeRate    float64 `json:"on_time_rate,omitempty" yaml:"on_time_rate,omitempty"`
	AvgDaysToPay  float64 `json:"avg_days_to_pay,omitempty" yaml:"avg_days_to_pay,omitempty"`
	LifetimeValue float64 `json:"lifetime_value,omitempty" yaml:"lifetime_value,omitempty"`
}

// Obligation is a single open invoice. DueDate is an ISO date (YYYY-MM-DD).
type Obligation struct {
	InvoiceNumber  string  `json:"invoice_number" yaml:"invoice_number"`
	OriginalAmount float64 `json:"original_amount" yaml:"original_amount"`
	AmountDue      float64 `json:"amount_due" yaml:"amount_due"`
	DueDate        string  `json:"due_date" yaml:"due_date"`
	DaysPastDue    int     `json:"days_past_due" yaml:"days_past_due"`
	State          string  `json:"state,omitempty" yaml:"state,omitempty"`
}

// Communication summarizes prior outreach to the party.
type Communication struct {
	TouchCount       int        `json:"touch_count" yaml:"touch_count"`
	LastTouchAt      *time.Time `json:"last_touch_at,omitempty" yaml:"last_touch_at,omitempty"`
	LastToneUsed     string     `json:"last_tone_used,omitempty" yaml:"last_tone_used,omitempty"`
	LastResponseType string     `json:"last_response_type,omitempty" yaml:"last_response_type,omitempty"`
}

// CaseContext is the full factual snapshot for one collection case.
// Guardrails validate drafts against this structure and nothing else.
type CaseContext struct {
	Party         Party          `json:"party" yaml:"party"`
	Behavior      *Behavior      `json:"behavior,omitempty" yaml:"behavior,omitempty"`
	Obligations   []Obligation   `json:"obligations" yaml:"obligations"`
	Communication *Communication `json:"communication,omitempty" yaml:"communication,omitempty"`

	CaseState           string `json:"case_state,omitempty" yaml:"case_state,omitempty"`
	DaysInState         int    `json:"days_in_state,omitempty" yaml:"days_in_state,omitempty"`
	BrokenPromisesCount int    `json:"broken_promises_count" yaml:"broken_promises_count"`
	ActiveDispute       bool   `json:"active_dispute" yaml:"active_dispute"`
	HardshipIndicated   bool   `json:"hardship_indicated" yaml:"hardship_indicated"`

	// Effective tenant settings after debtor-level override resolution.
	BrandTone         string `json:"brand_tone,omitempty" yaml:"brand_tone,omitempty"`
	TouchCap          int    `json:"touch_cap,omitempty" yaml:"touch_cap,omitempty"`
	TouchIntervalDays int    `json:"touch_interval_days,omitempty" yaml:"touch_interval_days,omitempty"`
	GraceDays         int    `json:"grace_days,omitempty" yaml:"grace_days,omitempty"`
	DoNotContactUntil string `json:"do_not_contact_until,omitempty" yaml:"do_not_contact_until,omitempty"`
	MonthlyTouchCount int    `json:"monthly_touch_count,omitempty" yaml:"monthly_touch_count,omitempty"`
}

// TotalOutstanding is the sum of amount_due across all obligations.
func (c *CaseContext) TotalOutstanding() float64 {
	var total float64
	for _, o := range c.Obligations {
		total += o.AmountDue
	}
	return total
}

// MaxDaysPastDue returns the oldest overdue count, 0 when no obligations.
func (c *CaseContext) MaxDaysPastDue() int {
	max := 0
	for _, o := range c.Obligations {
		if o.DaysPastDue > max {
			max = o.DaysPastDue
		}
	}
	return max
}

// Email is one inbound message from a debtor.
type Email struct {
	Subject     string     `json:"subject" yaml:"subject"`
	Body        string     `json:"body" yaml:"body"`
	FromAddress string     `json:"from_address" yaml:"from_address"`
	FromName    string     `json:"from_name,omitempty" yaml:"from_name,omitempty"`
	ReceivedAt  *time.Time `json:"received_at,omitempty" yaml:"received_at,omitempty"`
}

// ExtractedData carries facts the classifier pulled out of an inbound email.
// A nil PromiseDate means no promise was extracted.
type ExtractedData struct {
	PromiseDate     *time.Time `json:"promise_date,omitempty" yaml:"promise_date,omitempty"`
	PromiseAmount   float64    `json:"promise_amount,omitempty" yaml:"promise_amount,omitempty"`
	DisputeType     string     `json:"dispute_type,omitempty" yaml:"dispute_type,omitempty"`
	DisputeReason   string     `json:"dispute_reason,omitempty" yaml:"dispute_reason,omitempty"`
	RedirectContact string     `json:"redirect_contact,omitempty" yaml:"redirect_contact,omitempty"`
	RedirectEmail   string     `json:"redirect_email,omitempty" yaml:"redirect_email,omitempty"`
}
