// Package prompts holds the LLM prompt templates and their formatters.
// Templates are the behavioural contract with the model: edit with care and
// keep the JSON response shapes in sync with the engine's parsers.
package prompts

import (
	"fmt"
	"strings"

	"github.com/solvix/draftgate/internal/model"
)

const ClassifySystem = `You are an AI assistant for a B2B debt collection platform. Your task is to classify inbound emails from debtors.

Classifications (in priority order for multi-intent emails):
1. INSOLVENCY: Mentions administration, liquidation, bankruptcy, CVA, IVA, receivership - LEGAL implications, immediate pause required
2. DISPUTE: Debtor disputes the invoice, claims error, goods not received, quality issue, wrong amount, already paid claim
3. ALREADY_PAID: Specifically claims payment has already been made (high priority - relationship risk)
4. UNSUBSCRIBE: Requesting to stop receiving emails - MUST honour
5. HOSTILE: Aggressive, threatening, or abusive language
6. PROMISE_TO_PAY: Debtor commits to a specific payment date or amount
7. HARDSHIP: Indicates financial difficulty, cash flow problems, struggling - adapt tone, offer plan
8. PLAN_REQUEST: Requesting to pay in instalments
9. REDIRECT: Asking to contact a different person or department
10. REQUEST_INFO: Asking for invoice copy, statement, or other information
11. OUT_OF_OFFICE: Auto-reply, vacation message - note return date as context
12. COOPERATIVE: Debtor is willing to work with us, acknowledges debt, positive tone
13. UNCLEAR: Cannot confidently classify - flag for human review

Data Extraction Rules:
- If PROMISE_TO_PAY: Extract promise_date (YYYY-MM-DD) and promise_amount (if specified)
- If DISPUTE or ALREADY_PAID: Extract dispute_type (goods_not_received, quality_issue, pricing_error, already_paid, wrong_customer, other) and dispute_reason
- If REDIRECT: Extract redirect_contact (name) and redirect_email (email address)

Confidence Guidelines:
- 0.9-1.0: Clear, unambiguous classification
- 0.7-0.9: Likely correct but some ambiguity
- 0.5-0.7: Uncertain, may need human review
- Below 0.5: Use UNCLEAR classification

Respond in JSON format:
{
  "classification": "CLASSIFICATION",
  "confidence": 0.0-1.0,
  "reasoning": "Brief explanation of classification decision",
  "extracted_data": {
    "promise_date": null,
    "promise_amount": null,
    "dispute_type": null,
    "dispute_reason": null,
    "redirect_contact": null,
    "redirect_email": null
  }
}`

const GatesSystem = `You are an AI assistant evaluating whether a proposed collection action should proceed.

Evaluate these gates:

1. touch_cap: Has the maximum number of touches been reached?
   - If touch_count >= touch_cap, FAIL
   - Recommendation if failed: "Consider legal referral or write-off review"

2. cooling_off: Has enough time passed since last contact?
   - If days_since_last_touch < touch_interval_days, FAIL
   - Recommendation if failed: "Wait {days_remaining} more days before next contact"

3. dispute_active: Is there an unresolved dispute?
   - If active_dispute = TRUE, FAIL
   - Recommendation if failed: "Resolve dispute before further contact"

4. hardship: Has the debtor indicated financial hardship?
   - If hardship_indicated = TRUE, this is a WARNING not a block
   - Recommendation: "Adapt tone, consider payment plan offer"

5. unsubscribe: Has the debtor requested no contact?
   - If unsubscribe_requested = TRUE, FAIL
   - Recommendation if failed: "Contact blocked - manual intervention required"

6. escalation_appropriate: Is the proposed tone/action appropriate given history?
   - If proposed tone is less escalated than current situation warrants, WARNING
   - If proposed tone jumps too many levels (e.g., friendly_reminder after 3 broken promises), WARNING

For each gate:
- passed: true = action allowed, false = action blocked
- reason: explanation of the decision
- current_value: the actual value checked
- threshold: the limit/requirement

Overall allowed = TRUE only if no gates FAIL (warnings don't block)

Respond in JSON format:
{
  "allowed": true/false,
  "gate_results": {
    "gate_name": {
      "passed": true/false,
      "reason": "explanation",
      "current_value": value,
      "threshold": threshold
    }
  },
  "recommended_action": "alternative action if blocked, or null if allowed"
}`

const DraftSystem = `You are an AI assistant for a B2B debt collection platform. Your task is to generate professional collection emails.

Guidelines:
- Be professional and respectful at all times
- Reference specific invoice numbers and amounts
- Acknowledge any previous communication or promises
- Adjust tone based on the escalation level
- Include clear call-to-action
- Keep emails concise but complete
- Never be threatening or use language that could be seen as harassment
- For UK/EU debtors, be mindful of relevant regulations
- Include "If you have recently made payment, please disregard this message" when appropriate

Tone Definitions:
- friendly_reminder: First contact, assumes oversight. Warm, helpful. "We wanted to bring to your attention..."
- professional: Standard business tone, clear expectations. "Our records show the following outstanding..."
- firm: More serious, emphasizes obligation. Direct but still respectful. "We must now ask for your urgent attention..."
- final_notice: Last attempt before escalation. States consequences clearly. "This is our final reminder before..."
- concerned_inquiry: For good customers with unusual behaviour. "We noticed this is unusual for your account..."

Call-to-Action Options:
- Request payment by specific date
- Request a call to discuss
- Request a payment timeline
- Offer payment plan discussion

Email Structure:
1. Professional greeting
2. Clear statement of outstanding amount
3. List of overdue invoices (invoice number, amount, days overdue)
4. Reference to previous communication if applicable
5. Specific call-to-action
6. Contact details for queries
7. Professional sign-off with [SENDER_NAME] and [SENDER_TITLE] placeholders

Respond in JSON format:
{
  "subject": "Email subject line",
  "body": "Full email body with proper greeting and signature placeholder"
}`

const AdjudicateSystem = `You are a validation assistant. Respond only with valid JSON.`

// ClassifyUser renders the classification request for one inbound email.
func ClassifyUser(cc *model.CaseContext, email model.Email) string {
	segment := "unknown"
	if cc.Behavior != nil && cc.Behavior.Segment != "" {
		segment = cc.Behavior.Segment
	}
	fromName := email.FromName
	if fromName == "" {
		fromName = "Unknown"
	}

	return fmt.Sprintf(`Classify this email from a debtor.

**Debtor Context:**
- Company: %s
- Customer Code: %s
- Total Outstanding: %s %s
- Oldest Overdue: %d days
- Previous Broken Promises: %d
- Payment Segment: %s
- Active Dispute: %t
- Hardship Indicated: %t

**Email:**
From: %s <%s>
Subject: %s

%s

Classify this email and extract any relevant data.`,
		cc.Party.Name,
		cc.Party.CustomerCode,
		cc.Party.Currency, Money(cc.TotalOutstanding()),
		cc.MaxDaysPastDue(),
		cc.BrokenPromisesCount,
		segment,
		cc.ActiveDispute,
		cc.HardshipIndicated,
		fromName, email.FromAddress,
		email.Subject,
		email.Body,
	)
}

// GatesUser renders the gate-evaluation request for a proposed action.
func GatesUser(cc *model.CaseContext, proposedAction, proposedTone string, daysSinceLastTouch int, unsubscribeRequested bool) string {
	if proposedTone == "" {
		proposedTone = "not specified"
	}
	touchCount := 0
	lastTone := "None"
	if cc.Communication != nil {
		touchCount = cc.Communication.TouchCount
		if cc.Communication.LastToneUsed != "" {
			lastTone = cc.Communication.LastToneUsed
		}
	}
	segment := "standard"
	if cc.Behavior != nil && cc.Behavior.Segment != "" {
		segment = cc.Behavior.Segment
	}

	return fmt.Sprintf(`Evaluate whether this action should proceed.

**Proposed Action:** %s
**Proposed Tone:** %s

**Case State:**
- Total Touches: %d
- Touch Cap: %d
- Days Since Last Touch: %d
- Required Interval: %d days
- Active Dispute: %t
- Hardship Indicated: %t
- Unsubscribe Requested: %t
- Broken Promises: %d
- Last Tone Used: %s
- Case State: %s

**Context:**
- Total Outstanding: %s %s
- Customer Segment: %s

Evaluate all gates and determine if the action should proceed.`,
		proposedAction,
		proposedTone,
		touchCount,
		cc.TouchCap,
		daysSinceLastTouch,
		cc.TouchIntervalDays,
		cc.ActiveDispute,
		cc.HardshipIndicated,
		unsubscribeRequested,
		cc.BrokenPromisesCount,
		lastTone,
		caseStateOr(cc, "ACTIVE"),
		cc.Party.Currency, Money(cc.TotalOutstanding()),
		segment,
	)
}

// DraftUser renders the generation request. invoicesList is the pre-built
// top-N invoice block; customInstructions is already screened and may be "".
func DraftUser(cc *model.CaseContext, invoicesList, tone, objective, customInstructions string, daysSinceLastTouch int) string {
	touchCount := 0
	lastTouch := "Never"
	lastTone := "None"
	lastResponse := "No response"
	if cc.Communication != nil {
		touchCount = cc.Communication.TouchCount
		if cc.Communication.LastTouchAt != nil {
			lastTouch = cc.Communication.LastTouchAt.Format("2006-01-02")
		}
		if cc.Communication.LastToneUsed != "" {
			lastTone = cc.Communication.LastToneUsed
		}
		if cc.Communication.LastResponseType != "" {
			lastResponse = cc.Communication.LastResponseType
		}
	}
	segment := "standard"
	onTimeRate := "Unknown"
	avgDaysToPay := "Unknown"
	if cc.Behavior != nil {
		if cc.Behavior.Segment != "" {
			segment = cc.Behavior.Segment
		}
		if cc.Behavior.OnTimeRate > 0 {
			onTimeRate = fmt.Sprintf("%.0f%%", cc.Behavior.OnTimeRate*100)
		}
		if cc.Behavior.AvgDaysToPay > 0 {
			avgDaysToPay = fmt.Sprintf("%.0f", cc.Behavior.AvgDaysToPay)
		}
	}
	if objective == "" {
		objective = "collect payment"
	}
	custom := ""
	if customInstructions != "" {
		custom = "\nAdditional: " + customInstructions
	}

	return fmt.Sprintf(`Generate a collection email draft.

**Debtor:**
- Company: %s
- Customer Code: %s
- Total Outstanding: %s %s

**Overdue Invoices:**
%s

**Communication History:**
- Previous Touches: %d
- Last Contact: %s
- Last Tone Used: %s
- Last Response Type: %s

**Current State:**
- Case State: %s
- Days Since Last Touch: %d
- Broken Promises: %d
- Active Dispute: %t
- Hardship Indicated: %t

**Behavioural Context:**
- Payment Segment: %s
- On-Time Rate: %s
- Avg Days to Pay: %s

**Instructions:**
- Tone: %s
- Objective: %s
- Brand Tone: %s%s

Generate the email draft.`,
		cc.Party.Name,
		cc.Party.CustomerCode,
		cc.Party.Currency, Money(cc.TotalOutstanding()),
		invoicesList,
		touchCount,
		lastTouch,
		lastTone,
		lastResponse,
		caseStateOr(cc, "ACTIVE"),
		daysSinceLastTouch,
		cc.BrokenPromisesCount,
		cc.ActiveDispute,
		cc.HardshipIndicated,
		segment,
		onTimeRate,
		avgDaysToPay,
		tone,
		objective,
		cc.BrandTone,
		custom,
	)
}

// AdjudicateUser renders the entity-accuracy check for one draft.
func AdjudicateUser(draft, customerCode, partyName string) string {
	return fmt.Sprintf(`Validate the following draft email for entity accuracy.

EXPECTED ENTITIES:
- Customer Code: %s
- Party/Company Name: %s

DRAFT TO VALIDATE:
%s

Your task:
1. Check if the draft correctly references the customer code (if mentioned at all)
2. Check if the draft addresses the correct party/company name
3. Identify any hallucinated, fabricated, or mismatched identifiers

IMPORTANT: The draft does NOT need to explicitly mention the customer code. Only flag it as invalid if it mentions a DIFFERENT code than expected.

Respond ONLY with valid JSON (no markdown):
{
  "customer_code_valid": true,
  "customer_code_reason": "Customer code not mentioned or matches expected",
  "party_name_valid": true,
  "party_name_reason": "Party name matches or is a reasonable variation",
  "issues_found": [],
  "passed": true
}

Set "passed" to false only if there are actual mismatches or hallucinated identifiers.`,
		customerCode, partyName, draft)
}

// Money formats an amount with thousands separators and two decimals, the
// way amounts are written in the drafts themselves.
func Money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	neg := false
	if strings.HasPrefix(intPart, "-") {
		neg = true
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func caseStateOr(cc *model.CaseContext, def string) string {
	if cc.CaseState != "" {
		return cc.CaseState
	}
	return def
}
