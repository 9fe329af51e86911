package maildrop

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// defaultRateLimit caps classify jobs per sender per window. A debtor
	// replying in a burst still gets through; a mail loop does not.
	defaultRateLimit = 10

	defaultRateWindow = 1 * time.Hour
)

// RateLimiter applies a per-sender sliding window, persisted as one small
// JSON file per sender under stateDir. Persistence matters here: maildrop
// runs once per delivered message, so the window must outlive the process.
type RateLimiter struct {
	stateDir string
	limit    int
	window   time.Duration
	now      func() time.Time
}

// senderWindow is the on-disk record of a sender's recent job timestamps.
type senderWindow struct {
	Timestamps []time.Time `json:"timestamps"`
}

// NewRateLimiter builds a limiter rooted at stateDir. Non-positive limit
// or window select the defaults.
func NewRateLimiter(stateDir string, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &RateLimiter{stateDir: stateDir, limit: limit, window: window, now: time.Now}
}

// Check records one job attempt for sender and errors if the window is
// already full. Timestamps older than the window are dropped as a side
// effect, so state files stay bounded.
func (r *RateLimiter) Check(sender string) error {
	if err := os.MkdirAll(r.stateDir, 0750); err != nil {
		return fmt.Errorf("create rate limit dir: %w", err)
	}

	path := r.statePath(sender)
	cutoff := r.now().Add(-r.window)

	var recent []time.Time
	for _, ts := range r.readWindow(path) {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= r.limit {
		return fmt.Errorf("rate limit exceeded: %d jobs in the last %s for %s",
			len(recent), r.window, sender)
	}

	return r.writeWindow(path, append(recent, r.now().UTC()))
}

// statePath hashes the sender address. Inbound mail is attacker-controlled,
// so addresses never become path components directly.
func (r *RateLimiter) statePath(sender string) string {
	sum := sha256.Sum256([]byte(sender))
	return filepath.Join(r.stateDir, hex.EncodeToString(sum[:8])+".json")
}

// readWindow returns the recorded timestamps, treating a missing or
// corrupt state file as an empty window.
func (r *RateLimiter) readWindow(path string) []time.Time {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var w senderWindow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil
	}
	return w.Timestamps
}

func (r *RateLimiter) writeWindow(path string, timestamps []time.Time) error {
	data, err := json.Marshal(senderWindow{Timestamps: timestamps})
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
