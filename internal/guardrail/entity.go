package guardrail

import (
	"context"
	"regexp"
	"strings"

	"github.com/solvix/draftgate/internal/model"
	"github.com/solvix/draftgate/internal/textscan"
)

// EntityVerdict is the adjudicator's structured answer for one draft.
type EntityVerdict struct {
	CustomerCodeValid  bool
	CustomerCodeReason string
	PartyNameValid     bool
	PartyNameReason    string
	Issues             []string
}

// Adjudicator asks an LLM whether the draft's customer code and party name
// are valid-or-absent versus mismatched or fabricated. Implementations own
// their retry policy and must fail closed: an error here means the verdict
// could not be obtained, never that the draft is fine.
type Adjudicator interface {
	AdjudicateEntities(ctx context.Context, draft, customerCode, partyName string) (EntityVerdict, error)
}

// codeTokenRe matches customer-code-shaped tokens: a short uppercase prefix
// joined to digits, e.g. "ACME-0042" or "CUST1234".
var codeTokenRe = regexp.MustCompile(`\b([A-Z]{2,6}-?\d{3,})\b`)

// genericSalutations are addressee forms that name no one in particular and
// must never be flagged.
var genericSalutations = map[string]bool{
	"customer": true, "customers": true, "valued customer": true,
	"sir": true, "madam": true, "sir/madam": true, "sir or madam": true,
	"team": true, "accounts team": true, "accounts payable": true,
	"accounts payable team": true, "finance team": true, "all": true,
}

// salutationRe captures the addressee of a "Dear X," opening line.
var salutationRe = regexp.MustCompile(`(?im)^\s*dear\s+([^,\n]+)`)

// EntityVerification prevents addressing the wrong customer and fabricating
// contact emails. Identity checks run through the LLM adjudicator when one
// is configured, otherwise through the deterministic token strategy. The
// fabricated-email check is deterministic in both modes.
type EntityVerification struct {
	base
	adjudicator Adjudicator
}

// NewEntityVerification constructs the guardrail at CRITICAL severity.
// A nil adjudicator selects the deterministic strategy.
func NewEntityVerification(adj Adjudicator) *EntityVerification {
	return &EntityVerification{
		base:        base{name: "entity_verification", severity: SeverityCritical},
		adjudicator: adj,
	}
}

// Validate returns the code result, the name result, and the email result.
func (g *EntityVerification) Validate(ctx context.Context, output string, cc *model.CaseContext, extras Extras) ([]Result, error) {
	var results []Result
	if g.adjudicator != nil {
		results = g.adjudicated(ctx, output, cc)
	} else {
		results = g.deterministic(output, cc)
	}
	results = append(results, g.checkEmails(output, extras))
	return results, nil
}

// adjudicated obtains the identity verdict from the LLM. An adjudicator
// error fails both identity checks outright — a validator that cannot reach
// its judge must never wave the draft through.
func (g *EntityVerification) adjudicated(ctx context.Context, output string, cc *model.CaseContext) []Result {
	verdict, err := g.adjudicator.AdjudicateEntities(ctx, output, cc.Party.CustomerCode, cc.Party.Name)
	if err != nil {
		details := map[string]any{"adjudicator_error": err.Error()}
		return []Result{
			g.fail("entity adjudication unavailable, failing closed",
				cc.Party.CustomerCode, nil, details),
			g.fail("entity adjudication unavailable, failing closed",
				cc.Party.Name, nil, details),
		}
	}

	var results []Result

	if verdict.CustomerCodeValid {
		results = append(results, g.pass(orDefault(verdict.CustomerCodeReason, "customer code validated"),
			map[string]any{"customer_code": cc.Party.CustomerCode}))
	} else {
		results = append(results, g.fail(orDefault(verdict.CustomerCodeReason, "customer code mismatch"),
			cc.Party.CustomerCode, nil,
			map[string]any{"issues": verdict.Issues}))
	}

	if verdict.PartyNameValid {
		results = append(results, g.pass(orDefault(verdict.PartyNameReason, "party name validated"),
			map[string]any{"party_name": cc.Party.Name}))
	} else {
		results = append(results, g.fail(orDefault(verdict.PartyNameReason, "party name mismatch"),
			cc.Party.Name, nil,
			map[string]any{"issues": verdict.Issues}))
	}

	return results
}

// deterministic flags code-shaped tokens and salutation addressees that
// match nothing in the context. Absence of a code or name is never an error,
// and generic salutations pass.
func (g *EntityVerification) deterministic(output string, cc *model.CaseContext) []Result {
	return []Result{
		g.checkCodeTokens(output, cc),
		g.checkSalutation(output, cc),
	}
}

func (g *EntityVerification) checkCodeTokens(output string, cc *model.CaseContext) Result {
	validCode := strings.ToUpper(cc.Party.CustomerCode)

	// Invoice identifiers are code-shaped too; they belong to the factual
	// grounding check, not this one.
	knownInvoices := make(map[string]bool, len(cc.Obligations))
	for _, o := range cc.Obligations {
		inv := strings.ToUpper(o.InvoiceNumber)
		knownInvoices[inv] = true
		if num := digitRun(inv); num != "" {
			knownInvoices[num] = true
		}
	}

	var invalid []string
	for _, m := range codeTokenRe.FindAllString(output, -1) {
		token := strings.ToUpper(m)
		if token == validCode || knownInvoices[token] {
			continue
		}
		if strings.HasPrefix(token, "INV") {
			continue
		}
		invalid = append(invalid, token)
	}

	if len(invalid) > 0 {
		return g.fail(
			"customer-code-like identifiers do not match expected code",
			validCode, invalid,
			map[string]any{"invalid_codes": invalid, "expected_code": validCode},
		)
	}

	return g.pass("customer code valid or not mentioned", map[string]any{
		"expected_code": validCode,
	})
}

func (g *EntityVerification) checkSalutation(output string, cc *model.CaseContext) Result {
	validName := strings.ToLower(cc.Party.Name)
	outputLower := strings.ToLower(output)

	// Full party name anywhere in the draft settles it.
	if validName != "" && strings.Contains(outputLower, validName) {
		return g.pass("party name validated", map[string]any{"party_name": cc.Party.Name})
	}

	m := salutationRe.FindStringSubmatch(output)
	if m == nil {
		return g.pass("no salutation to validate", nil)
	}

	addressee := strings.ToLower(strings.TrimSpace(m[1]))
	if genericSalutations[addressee] {
		return g.pass("generic salutation accepted", map[string]any{"salutation": addressee})
	}

	// A multi-character word shared with the party name counts as a match.
	for _, word := range strings.Fields(validName) {
		if len(word) > 3 && strings.Contains(addressee, word) {
			return g.pass("party name validated", map[string]any{"party_name": cc.Party.Name})
		}
	}

	return g.fail(
		"draft addresses a party not matching the case context",
		cc.Party.Name, addressee,
		map[string]any{"salutation": addressee, "expected_name": cc.Party.Name},
	)
}

// checkEmails validates that every email address in the draft is one the
// classifier explicitly extracted. An empty valid set means no email was
// ever supposed to appear, so any mention is a fabrication.
func (g *EntityVerification) checkEmails(output string, extras Extras) Result {
	found := textscan.Emails(output)
	if len(found) == 0 {
		return g.pass("no email addresses to validate", nil)
	}

	valid := make(map[string]bool)
	if extras.Extracted != nil && extras.Extracted.RedirectEmail != "" {
		valid[strings.ToLower(extras.Extracted.RedirectEmail)] = true
	}

	if len(valid) == 0 {
		return g.fail(
			"fabricated email addresses found",
			"no emails or extracted redirect email", found,
			map[string]any{"found_emails": found},
		)
	}

	var invalid []string
	for _, e := range found {
		if !valid[e] {
			invalid = append(invalid, e)
		}
	}
	if len(invalid) > 0 {
		validList := make([]string, 0, len(valid))
		for v := range valid {
			validList = append(validList, v)
		}
		return g.fail(
			"unverified email addresses found",
			validList, invalid,
			map[string]any{"invalid_emails": invalid},
		)
	}

	return g.pass("email addresses validated", map[string]any{
		"validated_emails": found,
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
