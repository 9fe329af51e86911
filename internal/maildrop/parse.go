// Package maildrop handles inbound debtor email intake. Raw messages piped
// through Postfix/sendmail are parsed, checked against the sender allowlist
// and per-sender rate limit, and converted to classify-job JSON files that
// the draftgate daemon picks up from its inbox.
package maildrop

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"
)

// Email holds the fields extracted from a raw inbound message.
type Email struct {
	From     string
	FromName string
	Subject  string
	Body     string
}

// Parse extracts sender, subject, and plain-text body from a raw email.
// Multipart and HTML messages are rejected: only plain text reaches the
// classifier.
func Parse(raw []byte) (*Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse email: %w", err)
	}

	from := msg.Header.Get("From")
	if from == "" {
		return nil, fmt.Errorf("email missing From header")
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid From address: %w", err)
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if strings.HasPrefix(mediaType, "multipart/") {
				return nil, fmt.Errorf("multipart emails are not supported")
			}
			if mediaType == "text/html" {
				return nil, fmt.Errorf("HTML emails are not supported")
			}
		}
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Email{
		From:     addr.Address,
		FromName: addr.Name,
		Subject:  msg.Header.Get("Subject"),
		Body:     strings.TrimSpace(stripSignature(string(body))),
	}, nil
}

// stripSignature drops everything after the standard signature delimiter
// "-- \n" (dash, dash, space, newline).
func stripSignature(body string) string {
	idx := strings.Index(body, "\n-- \n")
	if idx >= 0 {
		return body[:idx]
	}
	return body
}
