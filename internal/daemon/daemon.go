package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/solvix/draftgate/internal/llm"
)

// Config holds full daemon configuration.
type Config struct {
	Dirs     DirConfig
	Provider llm.Config

	FailFast           bool
	MaxRetries         int
	RetryThreshold     int
	EntityAdjudication bool

	AuditLog   string
	ConfigHash string

	PollMode     bool
	PollInterval time.Duration
	Workers      int
	ReviewTTL    time.Duration
}

// Daemon watches the inbox directory and processes jobs.
type Daemon struct {
	cfg       Config
	processor *Processor
}

// New creates a daemon with validated configuration.
func New(cfg Config) (*Daemon, error) {
	if cfg.Dirs.Inbox == "" || cfg.Dirs.Outbox == "" || cfg.Dirs.State == "" {
		return nil, fmt.Errorf("inbox, outbox, and state directories are required")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = pollDefault
	}

	processor, err := NewProcessor(ProcessorConfig{
		Dirs:               cfg.Dirs,
		Provider:           cfg.Provider,
		FailFast:           cfg.FailFast,
		MaxRetries:         cfg.MaxRetries,
		RetryThreshold:     cfg.RetryThreshold,
		EntityAdjudication: cfg.EntityAdjudication,
		AuditLog:           cfg.AuditLog,
		ConfigHash:         cfg.ConfigHash,
	})
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:       cfg,
		processor: processor,
	}, nil
}

// Run starts the daemon. Blocks until ctx is cancelled.
// On startup, processes any existing inbox files, re-queues deferred jobs,
// and recovers orphaned processing files.
func (d *Daemon) Run(ctx context.Context) error {
	if err := EnsureDirs(d.cfg.Dirs); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	defer func() { _ = d.processor.Close() }()

	// PID file lock prevents duplicate instances racing on the inbox.
	pidPath := filepath.Join(d.cfg.Dirs.State, "daemon.pid")
	if err := acquirePIDLock(pidPath); err != nil {
		return fmt.Errorf("acquire PID lock: %w", err)
	}
	defer func() { _ = os.Remove(pidPath) }()

	if err := d.recoverOrphans(); err != nil {
		return fmt.Errorf("recover orphans: %w", err)
	}

	handler := func(path string) {
		if err := d.processor.Process(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: process %s: %v\n", filepath.Base(path), err)
		}
	}

	if err := ScanExisting(d.cfg.Dirs.Inbox, handler); err != nil {
		return fmt.Errorf("scan existing: %w", err)
	}

	// Review expiry: stale pending drafts get rejected automatically.
	gateway := NewGateway(d.cfg.Dirs.Outbox, d.cfg.Dirs.State, d.cfg.ReviewTTL)
	go d.runExpirationSweeper(ctx, gateway)

	// Deferred jobs (rate-limited provider) get re-queued periodically.
	go d.runDeferredSweeper(ctx)

	if d.cfg.PollMode {
		pw := NewPollWatcher(d.cfg.Dirs.Inbox, handler, d.cfg.PollInterval)
		return pw.Run(ctx)
	}

	w := NewInboxWatcher(d.cfg.Dirs.Inbox, handler, d.cfg.Workers)
	return w.Run(ctx)
}

// expirationInterval is how often the sweeper checks for expired drafts.
const expirationInterval = 5 * time.Minute

// runExpirationSweeper periodically rejects drafts whose review window passed.
func (d *Daemon) runExpirationSweeper(ctx context.Context, gateway *Gateway) {
	ticker := time.NewTicker(expirationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := gateway.CheckExpired()
			if err != nil {
				fmt.Fprintf(os.Stderr, "daemon: expiration sweep: %v\n", err)
			} else if n > 0 {
				fmt.Fprintf(os.Stderr, "daemon: expired %d pending drafts\n", n)
			}
		}
	}
}

// deferredRetryInterval is how often deferred jobs go back to the inbox.
const deferredRetryInterval = 10 * time.Minute

// runDeferredSweeper re-queues jobs that were parked when the provider was
// rate limited. Moving them back to the inbox routes them through the normal
// watcher path; a still-limited provider just defers them again.
func (d *Daemon) runDeferredSweeper(ctx context.Context) {
	ticker := time.NewTicker(deferredRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.requeueDeferred()
		}
	}
}

func (d *Daemon) requeueDeferred() {
	deferredDir := d.cfg.Dirs.DeferredDir()
	entries, err := os.ReadDir(deferredDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isJobFile(e.Name()) {
			continue
		}
		src := filepath.Join(deferredDir, e.Name())
		dst := filepath.Join(d.cfg.Dirs.Inbox, e.Name())
		if err := moveFile(src, dst); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: requeue %s: %v\n", e.Name(), err)
			continue
		}
		fmt.Fprintf(os.Stderr, "daemon: requeued deferred job %s\n", e.Name())
	}
}

// recoverOrphans writes failed results for files left in state/processing/.
// These are jobs that were interrupted by a crash or restart.
func (d *Daemon) recoverOrphans() error {
	procDir := d.cfg.Dirs.ProcessingDir()
	entries, err := os.ReadDir(procDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !isJobFile(e.Name()) {
			continue
		}
		id := e.Name()[:len(e.Name())-5] // strip .json
		result := &Result{
			ID:          id,
			Status:      ResultFailed,
			Error:       "interrupted: job was processing when daemon stopped",
			CompletedAt: time.Now().UTC(),
		}
		if err := d.processor.writeResult(result); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: recover orphan %s: %v\n", id, err)
		}
		_ = os.Remove(filepath.Join(procDir, e.Name()))
	}
	return nil
}

// acquirePIDLock writes the current PID to the file and checks for stale locks.
func acquirePIDLock(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(string(data))
		if err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another daemon is running (PID %d)", pid)
				}
			}
		}
		// Stale PID file.
		_ = os.Remove(path)
	}

	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600)
}
