// Package textscan extracts factual claims from generated email text:
// invoice identifiers, currency amounts, stated totals, days-overdue
// mentions, dates, and email addresses. The pattern sets here are product
// behavior, not implementation detail — changing them changes what the
// guardrails accept.
package textscan

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Compiled surface patterns for invoice identifiers.
var (
	// INV-12345, INV 12345, INV12345 — captures the numeric part.
	invPrefixRe = regexp.MustCompile(`(?i)INV[-\s]?(\d+)`)

	// Invoice 12345, Invoice #12345.
	invWordRe = regexp.MustCompile(`(?i)Invoice\s*#?\s*(\d+)`)

	// invoice number: XYZ — captures any non-space token.
	invLabelRe = regexp.MustCompile(`(?i)invoice\s+number\s*:?\s*(\S+)`)

	// Bare #12345. Four or more digits to avoid matching short references.
	invHashRe = regexp.MustCompile(`#(\d{4,})`)
)

// Compiled patterns for currency-tagged amounts.
var (
	// £1,500.00, $1500, €1,000.
	amountSymbolRe = regexp.MustCompile(`[£$€]\s*([\d,]+(?:\.\d{2})?)`)

	// 1500 GBP.
	amountCodeSuffixRe = regexp.MustCompile(`([\d,]+(?:\.\d{2})?)\s*(?:GBP|USD|EUR)`)

	// GBP 1500.
	amountCodePrefixRe = regexp.MustCompile(`(?:GBP|USD|EUR)\s*([\d,]+(?:\.\d{2})?)`)
)

// Compiled patterns for stated-total phrases.
var totalRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)total\s+(?:outstanding|amount|due|owed)(?:\s+(?:is|of))?\s*:?\s*[£$€]?\s*([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)owe(?:s|d)?\s+(?:us\s+)?(?:a\s+total\s+of\s+)?[£$€]?\s*([\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)[£$€]\s*([\d,]+(?:\.\d{2})?)\s+(?:in\s+)?total`),
	regexp.MustCompile(`(?i)combined\s+(?:balance|amount)\s+(?:of|is)\s+[£$€]?\s*([\d,]+(?:\.\d{2})?)`),
}

// Compiled patterns for days-overdue mentions.
var daysRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s+days?\s+(?:past\s+due|overdue|late)`),
	regexp.MustCompile(`(?i)overdue\s+(?:by|for)\s+(\d+)\s+days?`),
}

// Compiled patterns for date mentions in due-date phrasing and natural form.
var dateRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)due\s+(?:on|by)\s+(\d{1,2}[\/\-]\d{1,2}[\/\-]\d{2,4})`),
	regexp.MustCompile(`(?i)due\s+date[:\s]+(\d{1,2}[\/\-]\d{1,2}[\/\-]\d{2,4})`),
	regexp.MustCompile(`(?i)(\d{1,2}(?:st|nd|rd|th)?\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4})`),
}

// emailRe matches email-shaped substrings.
var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ordinalRe strips ordinal suffixes ("15th" → "15") before date parsing.
var ordinalRe = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)`)

// Invoices returns deduplicated invoice identifiers found in text, uppercased.
// Candidates from the prefixed patterns carry only the numeric portion;
// the labeled pattern may capture a full token like "INV-12345".
func Invoices(text string) []string {
	seen := make(map[string]bool)
	var found []string

	add := func(v string) {
		v = strings.ToUpper(strings.TrimRight(v, ".,;:!?)"))
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		found = append(found, v)
	}

	for _, re := range []*regexp.Regexp{invPrefixRe, invWordRe, invLabelRe, invHashRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	}
	return found
}

// Amounts returns all currency-tagged amounts in text, in order of pattern
// precedence, with thousands separators removed. Duplicates are kept: the
// same figure stated twice is two claims.
func Amounts(text string) []float64 {
	var amounts []float64
	for _, re := range []*regexp.Regexp{amountSymbolRe, amountCodeSuffixRe, amountCodePrefixRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v, ok := ParseAmount(m[1]); ok {
				amounts = append(amounts, v)
			}
		}
	}
	return amounts
}

// StatedTotals returns amounts the text presents as totals
// ("total outstanding is X", "owe a total of X", "X in total", "combined balance of X").
func StatedTotals(text string) []float64 {
	var totals []float64
	for _, re := range totalRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v, ok := ParseAmount(m[1]); ok {
				totals = append(totals, v)
			}
		}
	}
	return totals
}

// DaysOverdue returns every "N days past due/overdue/late" mention.
func DaysOverdue(text string) []int {
	var days []int
	for _, re := range daysRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				days = append(days, n)
			}
		}
	}
	return days
}

// Dates returns parseable date mentions from due-date phrasing and natural
// "15th January 2024" forms. Unparseable matches are dropped.
func Dates(text string) []time.Time {
	var dates []time.Time
	for _, re := range dateRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if d, ok := ParseDate(m[1]); ok {
				dates = append(dates, d)
			}
		}
	}
	return dates
}

// Emails returns deduplicated email addresses found in text, lowercased.
func Emails(text string) []string {
	seen := make(map[string]bool)
	var found []string
	for _, m := range emailRe.FindAllString(text, -1) {
		m = strings.ToLower(m)
		if !seen[m] {
			seen[m] = true
			found = append(found, m)
		}
	}
	return found
}

// ParseAmount parses a numeric amount string, tolerating thousands separators.
func ParseAmount(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), " ", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dateFormats are the numeric layouts tried in order. Day-first layouts come
// before month-first: the product's market writes DD/MM/YYYY.
var dateFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"02/01/06",
	"02-01-06",
	"01/02/2006",
	"2006-01-02",
}

// ParseDate parses a date mention in numeric or natural form.
// Ordinal suffixes are stripped before natural-form parsing.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	cleaned := ordinalRe.ReplaceAllString(s, "$1")
	if d, err := time.Parse("2 January 2006", cleaned); err == nil {
		return d, true
	}
	if d, err := time.Parse("2 Jan 2006", cleaned); err == nil {
		return d, true
	}
	return time.Time{}, false
}
