package daemon

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Mschirtzinger/quotesync/internal/quote"
)

// InboxEvent reports an import file that appeared or changed in the inbox.
type InboxEvent struct {
	// Path is the absolute path to the file.
	Path string
	// Format is derived from the file extension.
	Format quote.Format
}

// InboxWatcher watches a directory for dropped import files.
// It uses fsnotify for cross-platform file system event monitoring.
type InboxWatcher struct {
	watcher *fsnotify.Watcher
	events  chan InboxEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	dir     string
}

// NewInboxWatcher creates a new InboxWatcher instance.
// The watcher must be started with Start() before it will emit events.
func NewInboxWatcher() (*InboxWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &InboxWatcher{
		watcher: watcher,
		events:  make(chan InboxEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching dir for *.json, *.yaml and *.yml files.
func (iw *InboxWatcher) Start(dir string) error {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.running {
		return fmt.Errorf("watcher already running")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve inbox directory %s: %w", dir, err)
	}
	if err := iw.watcher.Add(abs); err != nil {
		return fmt.Errorf("failed to watch inbox directory %s: %w", abs, err)
	}
	iw.dir = abs

	iw.running = true
	iw.wg.Add(1)
	go iw.processEvents()

	return nil
}

// Stop stops watching and closes the event channels.
// It blocks until the event processing goroutine has exited.
func (iw *InboxWatcher) Stop() error {
	iw.mu.Lock()
	wasRunning := iw.running
	iw.running = false
	iw.mu.Unlock()

	if !wasRunning {
		// Release the fsnotify handle of a watcher that never started.
		return iw.watcher.Close()
	}

	close(iw.done)

	if err := iw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	iw.wg.Wait()

	close(iw.events)
	close(iw.errors)

	return nil
}

// Events returns the channel that emits InboxEvent notifications.
// This channel is closed when the watcher is stopped.
func (iw *InboxWatcher) Events() <-chan InboxEvent {
	return iw.events
}

// Errors returns the channel that emits watcher errors.
// This channel is closed when the watcher is stopped.
func (iw *InboxWatcher) Errors() <-chan error {
	return iw.errors
}

// IsRunning returns true if the watcher is currently running.
func (iw *InboxWatcher) IsRunning() bool {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	return iw.running
}

func (iw *InboxWatcher) processEvents() {
	defer iw.wg.Done()

	for {
		select {
		case <-iw.done:
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}

			if ev, ok := iw.convertEvent(event); ok {
				select {
				case iw.events <- ev:
				case <-iw.done:
					return
				}
			}

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case iw.errors <- err:
			case <-iw.done:
				return
			}
		}
	}
}

// convertEvent keeps create and write events for import files directly
// inside the inbox. Removals, renames and chmods are ignored.
func (iw *InboxWatcher) convertEvent(event fsnotify.Event) (InboxEvent, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return InboxEvent{}, false
	}
	if !IsImportFile(event.Name) {
		return InboxEvent{}, false
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil || filepath.Dir(abs) != iw.dir {
		return InboxEvent{}, false
	}

	return newInboxEvent(abs), true
}

func newInboxEvent(path string) InboxEvent {
	return InboxEvent{Path: path, Format: quote.FormatFromPath(path)}
}

// IsImportFile reports whether name looks like an import payload.
// Hidden and editor temp files are skipped.
func IsImportFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
