package maildrop

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds maildrop processing configuration.
type Config struct {
	InboxDir      string
	AllowlistFile string
	RateLimitDir  string
	RateLimit     int
	RateWindow    time.Duration
}

// partyCodeRe matches an account reference in a subject line, e.g.
// "RE: Overdue invoices ACME-0042". INV-prefixed tokens are invoice
// numbers, not account codes.
var partyCodeRe = regexp.MustCompile(`\b([A-Z]{2,6}-?\d{3,})\b`)

// jobJSON mirrors the daemon.Job schema without importing it, keeping the
// intake path free of the daemon's engine dependencies.
type jobJSON struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	PartyCode string       `json:"party_code,omitempty"`
	Email     jobEmailJSON `json:"email"`
	Source    string       `json:"source"`
	CreatedAt time.Time    `json:"created_at"`
}

type jobEmailJSON struct {
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	FromAddress string    `json:"from_address"`
	FromName    string    `json:"from_name,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// ProcessEmail parses a raw debtor email, validates the sender, checks the
// rate limit, and writes a classify job to the inbox directory. The job type
// is always classify: inbound email can never trigger draft generation
// directly.
func ProcessEmail(cfg Config, raw []byte) error {
	email, err := Parse(raw)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	al, err := LoadAllowlist(cfg.AllowlistFile)
	if err != nil {
		return fmt.Errorf("allowlist: %w", err)
	}
	if !al.IsAllowed(email.From) {
		return fmt.Errorf("sender %s not in allowlist", email.From)
	}

	rl := NewRateLimiter(cfg.RateLimitDir, cfg.RateLimit, cfg.RateWindow)
	if err := rl.Check(email.From); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	id := "mail-" + uuid.NewString()
	job := jobJSON{
		ID:        id,
		Type:      "classify",
		PartyCode: PartyCode(email.Subject),
		Email: jobEmailJSON{
			Subject:     email.Subject,
			Body:        email.Body,
			FromAddress: email.From,
			FromName:    email.FromName,
			ReceivedAt:  time.Now().UTC(),
		},
		Source:    "maildrop",
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	filename := id + ".json"
	tmpPath := filepath.Join(cfg.InboxDir, filename+".tmp")
	finalPath := filepath.Join(cfg.InboxDir, filename)

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmpPath, finalPath)
}

// PartyCode pulls the first account-code-shaped token out of a subject line,
// skipping invoice numbers. Empty when the subject carries no reference; the
// daemon then resolves the party from the sender address.
func PartyCode(subject string) string {
	for _, m := range partyCodeRe.FindAllString(subject, -1) {
		if strings.HasPrefix(strings.ToUpper(m), "INV") {
			continue
		}
		return m
	}
	return ""
}
