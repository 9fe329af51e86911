package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// settleDelay is how long the watcher waits after the last create
	// event before dispatching a batch. Maildrop renames jobs into the
	// inbox atomically, but operators sometimes cp a directory of drafts
	// in one go; the delay folds such bursts into a single dispatch.
	settleDelay = 200 * time.Millisecond

	// defaultWorkers bounds concurrent job processing. Each draft job can
	// hold an LLM connection through several retry rounds, so the pool
	// stays small.
	defaultWorkers = 4

	// dispatchBuffer sizes the job channel. Must exceed the worker count
	// so a settled batch of any realistic size never stalls the event
	// loop.
	dispatchBuffer = 200

	// pollDefault is the poll interval when fsnotify cannot watch the
	// inbox (NFS mounts, some container volumes).
	pollDefault = 5 * time.Second
)

// InboxWatcher feeds newly dropped job files to a handler, using fsnotify
// create events with a settle delay.
type InboxWatcher struct {
	inbox   string
	handler func(path string)
	settle  time.Duration
	workers int
}

// NewInboxWatcher builds a watcher over the inbox directory. workers <= 0
// selects the default pool size.
func NewInboxWatcher(inbox string, handler func(path string), workers int) *InboxWatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &InboxWatcher{
		inbox:   inbox,
		handler: handler,
		settle:  settleDelay,
		workers: workers,
	}
}

// Run blocks until ctx is cancelled, handing each settled job file to the
// worker pool.
func (w *InboxWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.inbox); err != nil {
		return err
	}

	jobs := make(chan string, dispatchBuffer)

	var wg sync.WaitGroup
	wg.Add(w.workers)
	for i := 0; i < w.workers; i++ {
		go w.work(jobs, &wg)
	}

	// pending holds paths seen since the last dispatch. A single shared
	// timer re-arms on every event; when the inbox goes quiet for the
	// settle delay the whole batch dispatches at once. One goroutine per
	// dropped file would be a liability under a bulk import.
	var mu sync.Mutex
	pending := make(map[string]struct{})

	dispatch := func() {
		mu.Lock()
		batch := make([]string, 0, len(pending))
		for p := range pending {
			batch = append(batch, p)
		}
		pending = make(map[string]struct{})
		mu.Unlock()

		for _, p := range batch {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}

	settle := time.NewTimer(w.settle)
	settle.Stop()

	defer func() {
		settle.Stop()
		dispatch()
		close(jobs)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-settle.C:
			dispatch()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) || !isJobFile(ev.Name) {
				continue
			}

			mu.Lock()
			pending[ev.Name] = struct{}{}
			mu.Unlock()

			if !settle.Stop() {
				select {
				case <-settle.C:
				default:
				}
			}
			settle.Reset(w.settle)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			_ = err
		}
	}
}

// work drains the job channel. A panicking handler must not take the
// worker down with it.
func (w *InboxWatcher) work(jobs <-chan string, wg *sync.WaitGroup) {
	defer wg.Done()
	for path := range jobs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					_ = r
				}
			}()
			w.handler(path)
		}()
	}
}

// PollWatcher is the fallback for filesystems where fsnotify does not
// deliver events. It rescans the inbox on an interval and remembers which
// files it has already handed off.
type PollWatcher struct {
	inbox   string
	handler func(path string)
	every   time.Duration
	handled map[string]struct{}
}

// NewPollWatcher builds a polling watcher. interval 0 selects the default.
func NewPollWatcher(inbox string, handler func(path string), interval time.Duration) *PollWatcher {
	if interval == 0 {
		interval = pollDefault
	}
	return &PollWatcher{
		inbox:   inbox,
		handler: handler,
		every:   interval,
		handled: make(map[string]struct{}),
	}
}

// Run blocks until ctx is cancelled, scanning the inbox on each tick.
func (w *PollWatcher) Run(ctx context.Context) error {
	tick := time.NewTicker(w.every)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			for _, path := range listJobFiles(w.inbox) {
				if _, done := w.handled[path]; done {
					continue
				}
				w.handled[path] = struct{}{}
				w.handler(path)
			}
		}
	}
}

// ScanExisting hands over job files already sitting in the inbox, so jobs
// dropped while the daemon was down are not stranded. A missing inbox is
// not an error; the daemon creates it on first use.
func ScanExisting(inbox string, handler func(path string)) error {
	if _, err := os.Stat(inbox); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	for _, path := range listJobFiles(inbox) {
		handler(path)
	}
	return nil
}

// listJobFiles returns the job files currently in dir, skipping partial
// writes and subdirectories.
func listJobFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if isJobFile(path) {
			paths = append(paths, path)
		}
	}
	return paths
}

// isJobFile reports whether path looks like a completed job drop. Maildrop
// writes to a .tmp name first and renames, so .tmp files are in-flight.
func isJobFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".tmp")
}
