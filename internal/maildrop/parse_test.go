package maildrop

import (
	"strings"
	"testing"
)

func TestParseValid(t *testing.T) {
	raw := "From: accounts@acmetrading.co.uk\r\nSubject: RE: Overdue invoices ACME-0042\r\nContent-Type: text/plain\r\n\r\nWe will pay INV-12345 by Friday."

	email, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if email.From != "accounts@acmetrading.co.uk" {
		t.Errorf("From = %q", email.From)
	}
	if email.Subject != "RE: Overdue invoices ACME-0042" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if email.Body != "We will pay INV-12345 by Friday." {
		t.Errorf("Body = %q", email.Body)
	}
}

func TestParseNamedFrom(t *testing.T) {
	raw := "From: Jane Smith <jane@acmetrading.co.uk>\r\nSubject: payment\r\n\r\nbody"

	email, err := Parse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if email.From != "jane@acmetrading.co.uk" {
		t.Errorf("From = %q, want just the address", email.From)
	}
	if email.FromName != "Jane Smith" {
		t.Errorf("FromName = %q", email.FromName)
	}
}

func TestParseMissingFrom(t *testing.T) {
	raw := "Subject: No from\r\n\r\nbody"

	if _, err := Parse([]byte(raw)); err == nil {
		t.Error("expected error for missing From")
	}
}

func TestParseHTMLRejected(t *testing.T) {
	raw := "From: jane@acmetrading.co.uk\r\nSubject: test\r\nContent-Type: text/html\r\n\r\n<b>html</b>"

	if _, err := Parse([]byte(raw)); err == nil {
		t.Error("expected error for HTML email")
	}
}

func TestParseMultipartRejected(t *testing.T) {
	raw := "From: jane@acmetrading.co.uk\r\nSubject: test\r\nContent-Type: multipart/mixed; boundary=xyz\r\n\r\n--xyz\r\nContent-Type: text/plain\r\n\r\nhello\r\n--xyz--"

	if _, err := Parse([]byte(raw)); err == nil {
		t.Error("expected error for multipart email")
	}
}

func TestParseSignatureStripped(t *testing.T) {
	raw := "From: jane@acmetrading.co.uk\r\nSubject: test\r\n\r\nPayment is on its way\n-- \nBest regards\nJane"

	email, err := Parse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(email.Body, "Best regards") {
		t.Error("signature should be stripped")
	}
	if email.Body != "Payment is on its way" {
		t.Errorf("Body = %q", email.Body)
	}
}

func TestParseNoContentType(t *testing.T) {
	raw := "From: jane@acmetrading.co.uk\r\nSubject: test\r\n\r\nplain body"

	email, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("should accept email without Content-Type: %v", err)
	}
	if email.Body != "plain body" {
		t.Errorf("Body = %q", email.Body)
	}
}
