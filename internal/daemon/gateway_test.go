package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupGateway(t *testing.T) (*Gateway, DirConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := DirConfig{
		Inbox:  filepath.Join(root, "inbox"),
		Outbox: filepath.Join(root, "outbox"),
		State:  filepath.Join(root, "state"),
	}
	if err := EnsureDirs(cfg); err != nil {
		t.Fatal(err)
	}
	g := NewGateway(cfg.Outbox, cfg.State, 1*time.Hour)
	return g, cfg
}

func writePendingDraft(t *testing.T, outbox string, id string) {
	t.Helper()
	r := &Result{
		ID:        id,
		Status:    ResultPendingReview,
		PartyCode: "ACME-0042",
		Draft: &DraftResult{
			Subject:  "Outstanding invoices",
			Body:     "Dear Acme Trading Ltd,",
			ToneUsed: "professional",
			Attempts: 1,
		},
		CompletedAt: time.Now().UTC(),
	}
	data, _ := json.MarshalIndent(r, "", "  ")
	if err := os.WriteFile(filepath.Join(outbox, id+".json"), data, 0600); err != nil {
		t.Fatal(err)
	}
}

func TestGatewayPendingDrafts(t *testing.T) {
	g, cfg := setupGateway(t)

	writePendingDraft(t, cfg.Outbox, "draft-001")
	writePendingDraft(t, cfg.Outbox, "draft-002")

	// A done result must not show up in review.
	r := &Result{ID: "draft-003", Status: ResultDone, CompletedAt: time.Now().UTC()}
	data, _ := json.MarshalIndent(r, "", "  ")
	_ = os.WriteFile(filepath.Join(cfg.Outbox, "draft-003.json"), data, 0600)

	pending, err := g.PendingDrafts()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending drafts, got %d", len(pending))
	}
	if pending[0].PartyCode != "ACME-0042" {
		t.Errorf("party code = %q", pending[0].PartyCode)
	}
	if pending[0].Subject != "Outstanding invoices" {
		t.Errorf("subject = %q", pending[0].Subject)
	}
}

func TestGatewayApprove(t *testing.T) {
	g, cfg := setupGateway(t)
	writePendingDraft(t, cfg.Outbox, "draft-010")

	if err := g.Approve("draft-010"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.ApprovedDir(), "draft-010.json")); err != nil {
		t.Error("approved draft should be in state/approved")
	}
	if _, err := os.Stat(filepath.Join(cfg.Outbox, "draft-010.json")); !os.IsNotExist(err) {
		t.Error("approved draft should leave the outbox")
	}
}

func TestGatewayApproveUnknown(t *testing.T) {
	g, _ := setupGateway(t)
	if err := g.Approve("draft-404"); err == nil {
		t.Error("expected error for unknown draft")
	}
}

func TestGatewayApproveWrongStatus(t *testing.T) {
	g, cfg := setupGateway(t)
	r := &Result{ID: "draft-020", Status: ResultBlocked, CompletedAt: time.Now().UTC()}
	data, _ := json.MarshalIndent(r, "", "  ")
	_ = os.WriteFile(filepath.Join(cfg.Outbox, "draft-020.json"), data, 0600)

	if err := g.Approve("draft-020"); err == nil {
		t.Error("a blocked draft must never be approvable")
	}
}

func TestGatewayReject(t *testing.T) {
	g, cfg := setupGateway(t)
	writePendingDraft(t, cfg.Outbox, "draft-030")

	if err := g.Reject("draft-030", "tone too aggressive"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.RejectedDir(), "draft-030.json"))
	if err != nil {
		t.Fatal("rejected draft should be in state/rejected")
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	if r.Status != "rejected" {
		t.Errorf("status = %q", r.Status)
	}
	if r.Error != "tone too aggressive" {
		t.Errorf("reason = %q", r.Error)
	}
	if _, err := os.Stat(filepath.Join(cfg.Outbox, "draft-030.json")); !os.IsNotExist(err) {
		t.Error("rejected draft should leave the outbox")
	}
}

func TestGatewayApproveExpired(t *testing.T) {
	root := t.TempDir()
	cfg := DirConfig{
		Inbox:  filepath.Join(root, "inbox"),
		Outbox: filepath.Join(root, "outbox"),
		State:  filepath.Join(root, "state"),
	}
	if err := EnsureDirs(cfg); err != nil {
		t.Fatal(err)
	}
	g := NewGateway(cfg.Outbox, cfg.State, 10*time.Millisecond)
	writePendingDraft(t, cfg.Outbox, "draft-040")

	time.Sleep(50 * time.Millisecond)

	if err := g.Approve("draft-040"); err == nil {
		t.Error("expected error for expired draft")
	}
}

func TestGatewayCheckExpired(t *testing.T) {
	root := t.TempDir()
	cfg := DirConfig{
		Inbox:  filepath.Join(root, "inbox"),
		Outbox: filepath.Join(root, "outbox"),
		State:  filepath.Join(root, "state"),
	}
	if err := EnsureDirs(cfg); err != nil {
		t.Fatal(err)
	}
	g := NewGateway(cfg.Outbox, cfg.State, 10*time.Millisecond)
	writePendingDraft(t, cfg.Outbox, "draft-050")

	time.Sleep(50 * time.Millisecond)

	n, err := g.CheckExpired()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}

	data, err := os.ReadFile(filepath.Join(cfg.RejectedDir(), "draft-050.json"))
	if err != nil {
		t.Fatal("expired draft should be in state/rejected")
	}
	var r Result
	_ = json.Unmarshal(data, &r)
	if r.Error != "expired" {
		t.Errorf("reason = %q", r.Error)
	}
}

func TestGatewayInvalidID(t *testing.T) {
	g, _ := setupGateway(t)
	for _, id := range []string{"", "../../etc", "draft;rm"} {
		if err := g.Approve(id); err == nil {
			t.Errorf("expected error for ID %q", id)
		}
		if err := g.Reject(id, "x"); err == nil {
			t.Errorf("expected error for ID %q", id)
		}
	}
}
