package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// defaultTTL is how long a draft may wait for review before it expires.
// Collection drafts go stale: the case context they were validated against
// drifts as payments land and new invoices fall due.
const defaultTTL = 24 * time.Hour

// Gateway manages the review workflow for generated drafts in the outbox.
// Nothing is sent by this program; approval moves a draft to the approved
// directory where the sending integration picks it up.
type Gateway struct {
	outbox   string
	stateDir string
	ttl      time.Duration
	mu       sync.Mutex
}

// PendingDraft summarizes one draft awaiting review.
type PendingDraft struct {
	ID        string    `json:"id"`
	PartyCode string    `json:"party_code"`
	Subject   string    `json:"subject"`
	Tone      string    `json:"tone"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewGateway creates a review gateway over the outbox.
func NewGateway(outbox, stateDir string, ttl time.Duration) *Gateway {
	if ttl == 0 {
		ttl = defaultTTL
	}
	return &Gateway{
		outbox:   outbox,
		stateDir: stateDir,
		ttl:      ttl,
	}
}

// PendingDrafts returns all outbox results with status "pending_review".
func (g *Gateway) PendingDrafts() ([]PendingDraft, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entries, err := os.ReadDir(g.outbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pending []PendingDraft
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		r, err := g.readResult(filepath.Join(g.outbox, e.Name()))
		if err != nil {
			continue
		}
		if r.Status != ResultPendingReview {
			continue
		}

		info, _ := e.Info()
		createdAt := r.CompletedAt
		if info != nil {
			createdAt = info.ModTime()
		}

		pd := PendingDraft{
			ID:        r.ID,
			PartyCode: r.PartyCode,
			CreatedAt: createdAt,
			ExpiresAt: createdAt.Add(g.ttl),
		}
		if r.Draft != nil {
			pd.Subject = r.Draft.Subject
			pd.Tone = r.Draft.ToneUsed
		}
		pending = append(pending, pd)
	}
	return pending, nil
}

// Approve moves a pending draft from outbox to state/approved/.
func (g *Gateway) Approve(draftID string) error {
	if err := validateDraftID(draftID); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src := filepath.Join(g.outbox, draftID+".json")
	r, err := g.readResult(src)
	if err != nil {
		return fmt.Errorf("draft %q not found in outbox: %w", draftID, err)
	}

	if r.Status != ResultPendingReview {
		return fmt.Errorf("draft %q status is %q, not pending_review", draftID, r.Status)
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if time.Since(info.ModTime()) > g.ttl {
		return fmt.Errorf("draft %q has expired", draftID)
	}

	dst := filepath.Join(g.stateDir, "approved", draftID+".json")
	return os.Rename(src, dst)
}

// Reject moves a pending draft from outbox to state/rejected/ with a reason.
func (g *Gateway) Reject(draftID, reason string) error {
	if err := validateDraftID(draftID); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src := filepath.Join(g.outbox, draftID+".json")
	r, err := g.readResult(src)
	if err != nil {
		return fmt.Errorf("draft %q not found in outbox: %w", draftID, err)
	}
	if r.Status != ResultPendingReview {
		return fmt.Errorf("draft %q status is %q, not pending_review", draftID, r.Status)
	}

	r.Status = "rejected"
	r.Error = reason

	dst := filepath.Join(g.stateDir, "rejected", draftID+".json")
	tmpPath := dst + ".tmp"
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return err
	}

	return os.Remove(src)
}

// CheckExpired scans pending drafts and moves expired ones to rejected.
// Returns the number of drafts expired.
func (g *Gateway) CheckExpired() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entries, err := os.ReadDir(g.outbox)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var expired int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		src := filepath.Join(g.outbox, e.Name())
		r, err := g.readResult(src)
		if err != nil || r.Status != ResultPendingReview {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) <= g.ttl {
			continue
		}

		r.Status = "rejected"
		r.Error = "expired"
		draftID := strings.TrimSuffix(e.Name(), ".json")
		dst := filepath.Join(g.stateDir, "rejected", draftID+".json")
		tmpPath := dst + ".tmp"
		data, _ := json.MarshalIndent(r, "", "  ")
		if err := os.WriteFile(tmpPath, data, 0600); err != nil {
			continue
		}
		if err := os.Rename(tmpPath, dst); err != nil {
			continue
		}
		_ = os.Remove(src)
		expired++
	}
	return expired, nil
}

// readResult reads and parses a result JSON file.
func (g *Gateway) readResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// validateDraftID checks for path traversal and invalid characters.
func validateDraftID(id string) error {
	if id == "" {
		return fmt.Errorf("draft ID is required")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("draft ID must not contain '..'")
	}
	if !validID.MatchString(id) {
		return fmt.Errorf("draft ID contains invalid characters")
	}
	return nil
}
