package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ocastro/fieldsync/internal/outbox"
	"github.com/ocastro/fieldsync/internal/schema"
)

// spoolWatcher imports mutation files dropped into the spool directory
// by external tooling. Each *.json file holds one mutation; once
// enqueued the file is removed, invalid files are renamed aside so they
// don't loop.
type spoolWatcher struct {
	dir      string
	outbox   *outbox.Outbox
	debounce time.Duration
	logger   *log.Logger

	watcher *fsnotify.Watcher

	queueMu sync.Mutex
	queue   map[string]time.Time // path -> last event time
}

func newSpoolWatcher(dir string, ob *outbox.Outbox, debounce time.Duration, logger *log.Logger) (*spoolWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch spool directory: %w", err)
	}

	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	return &spoolWatcher{
		dir:      dir,
		outbox:   ob,
		debounce: debounce,
		logger:   logger,
		watcher:  watcher,
		queue:    make(map[string]time.Time),
	}, nil
}

func (s *spoolWatcher) close() {
	_ = s.watcher.Close()
}

// run watches until ctx is cancelled. Files already present at startup
// are imported first so nothing waits for a fresh event.
func (s *spoolWatcher) run(ctx context.Context) {
	s.importExisting(ctx)

	ticker := time.NewTicker(s.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			s.queueMu.Lock()
			s.queue[event.Name] = time.Now()
			s.queueMu.Unlock()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("Spool watcher error: %v", err)

		case <-ticker.C:
			s.processQueued(ctx)
		}
	}
}

// importExisting sweeps files left over from before the agent started.
func (s *spoolWatcher) importExisting(ctx context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Printf("Failed to read spool directory: %v", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		s.importFile(ctx, filepath.Join(s.dir, entry.Name()))
	}
}

// processQueued imports files whose events have settled for the
// debounce interval.
func (s *spoolWatcher) processQueued(ctx context.Context) {
	now := time.Now()

	s.queueMu.Lock()
	var ready []string
	for path, queuedAt := range s.queue {
		if now.Sub(queuedAt) >= s.debounce {
			ready = append(ready, path)
			delete(s.queue, path)
		}
	}
	s.queueMu.Unlock()

	for _, path := range ready {
		s.importFile(ctx, path)
	}
}

func (s *spoolWatcher) importFile(ctx context.Context, path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}

	m, err := schema.ReadMutationFile(path)
	if err != nil {
		s.logger.Printf("WARNING: rejecting spool file %s: %v", filepath.Base(path), err)
		if err := os.Rename(path, path+".rejected"); err != nil {
			s.logger.Printf("Failed to set aside rejected file: %v", err)
		}
		return
	}

	if err := s.outbox.EnqueueMutation(ctx, m); err != nil {
		// Leave the file in place; it will be retried on the next sweep.
		s.logger.Printf("Failed to enqueue spool mutation %s: %v", m.SyncKey(), err)
		s.queueMu.Lock()
		s.queue[path] = time.Now()
		s.queueMu.Unlock()
		return
	}

	if err := os.Remove(path); err != nil {
		s.logger.Printf("Failed to remove imported spool file: %v", err)
	}

	s.logger.Printf("Imported spool mutation %s -> %s", m.SyncKey(), m.Status)
}
