package daemon

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// dirPerm is the permission for daemon-managed directories.
const dirPerm = 0750

// DirConfig holds the daemon directory layout.
type DirConfig struct {
	Inbox  string // incoming job files
	Outbox string // completed results, including drafts pending review
	State  string // state/{processing,approved,rejected,deferred,parties}
}

// DefaultDirConfig returns reasonable defaults for local development.
func DefaultDirConfig() DirConfig {
	return DirConfig{
		Inbox:  "/var/lib/draftgate/inbox",
		Outbox: "/var/lib/draftgate/outbox",
		State:  "/var/lib/draftgate/state",
	}
}

// ProcessingDir holds jobs currently being executed.
func (d DirConfig) ProcessingDir() string {
	return filepath.Join(d.State, "processing")
}

// ApprovedDir holds reviewed drafts cleared for sending.
func (d DirConfig) ApprovedDir() string {
	return filepath.Join(d.State, "approved")
}

// RejectedDir holds drafts a reviewer declined, plus expired ones.
func (d DirConfig) RejectedDir() string {
	return filepath.Join(d.State, "rejected")
}

// DeferredDir holds jobs postponed because the LLM was rate limited.
func (d DirConfig) DeferredDir() string {
	return filepath.Join(d.State, "deferred")
}

// PartiesDir holds one case-context YAML file per party code.
func (d DirConfig) PartiesDir() string {
	return filepath.Join(d.State, "parties")
}

// EnsureDirs creates all required directories. Idempotent.
func EnsureDirs(cfg DirConfig) error {
	dirs := []string{
		cfg.Inbox,
		cfg.Outbox,
		cfg.ProcessingDir(),
		cfg.ApprovedDir(),
		cfg.RejectedDir(),
		cfg.DeferredDir(),
		cfg.PartiesDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// moveFile moves src to dst using os.Rename. If rename fails with EXDEV
// (cross-device link, common with systemd ReadWritePaths bind mounts),
// it falls back to copy + remove.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) || errno != syscall.EXDEV {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
