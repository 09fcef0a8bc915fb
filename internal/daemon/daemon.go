package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Mschirtzinger/quotesync/internal/dashboard"
	"github.com/Mschirtzinger/quotesync/internal/engine"
	"github.com/Mschirtzinger/quotesync/internal/quote"
	"github.com/Mschirtzinger/quotesync/internal/scheduler"
)

const (
	// ProcessedDir receives inbox files that imported cleanly.
	ProcessedDir = "processed"

	// FailedDir receives inbox files that could not be imported.
	FailedDir = "failed"
)

// Importer applies an import payload. *engine.Engine satisfies it.
type Importer interface {
	Import(ctx context.Context, data []byte, format quote.Format) (engine.ImportResult, error)
}

// Config holds configuration for the daemon.
type Config struct {
	// InboxDir is watched for import files. Empty disables the inbox.
	InboxDir string

	// DebounceInterval is how long a file must stay quiet before it is
	// imported. This lets writers finish before the file is read.
	DebounceInterval time.Duration

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 250 * time.Millisecond,
		Logger:           zap.NewNop(),
	}
}

// Daemon composes the scheduler, dashboard and inbox watcher.
type Daemon struct {
	importer  Importer
	scheduler *scheduler.Scheduler
	dashboard *dashboard.Server
	config    *Config
	logger    *zap.Logger

	watcher       *InboxWatcher
	changeQueue   map[string]queuedImport // path -> last event
	changeQueueMu sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a daemon. dash may be nil.
func New(importer Importer, sched *scheduler.Scheduler, dash *dashboard.Server, config *Config) (*Daemon, error) {
	if importer == nil {
		return nil, fmt.Errorf("importer cannot be nil")
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		importer:    importer,
		scheduler:   sched,
		dashboard:   dash,
		config:      config,
		logger:      logger.Named("daemon"),
		changeQueue: make(map[string]queuedImport),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start brings up every component and blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Info("starting daemon")

	if d.dashboard != nil {
		if err := d.dashboard.Start(); err != nil {
			d.cancel()
			return fmt.Errorf("failed to start dashboard: %w", err)
		}
	}

	if d.config.InboxDir != "" {
		if err := d.startInbox(); err != nil {
			d.cancel()
			if d.dashboard != nil {
				_ = d.dashboard.Stop()
			}
			return err
		}
	}

	if err := d.scheduler.Start(d.ctx); err != nil {
		d.cancel()
		return errors.Join(fmt.Errorf("failed to start scheduler: %w", err), d.stopComponents())
	}

	select {
	case <-ctx.Done():
		d.logger.Info("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		d.logger.Info("stopping daemon")
		d.cancel()
		err = d.stopComponents()
		d.logger.Info("daemon stopped")
	})
	return err
}

func (d *Daemon) stopComponents() error {
	var errs []error

	d.scheduler.Stop()

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	d.wg.Wait()

	if d.dashboard != nil {
		if err := d.dashboard.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Daemon) startInbox() error {
	dir := d.config.InboxDir
	for _, sub := range []string{dir, filepath.Join(dir, ProcessedDir), filepath.Join(dir, FailedDir)} {
		if err := os.MkdirAll(sub, 0755); err != nil {
			return fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	watcher, err := NewInboxWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Start(dir); err != nil {
		_ = watcher.Stop()
		return err
	}
	d.watcher = watcher
	d.logger.Info("watching inbox", zap.String("dir", dir))

	// Files dropped while the daemon was down.
	if err := d.ScanInbox(); err != nil {
		d.logger.Warn("initial inbox scan failed", zap.Error(err))
	}

	d.wg.Add(2)
	go d.watchInboxEvents()
	go d.processChangeQueue()
	return nil
}

// ScanInbox queues every import file currently in the inbox.
func (d *Daemon) ScanInbox() error {
	entries, err := os.ReadDir(d.config.InboxDir)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !IsImportFile(e.Name()) {
			continue
		}
		path, err := filepath.Abs(filepath.Join(d.config.InboxDir, e.Name()))
		if err != nil {
			continue
		}
		d.queueChange(newInboxEvent(path))
	}
	return nil
}

func (d *Daemon) watchInboxEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case ev, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			d.logger.Debug("inbox event", zap.String("path", ev.Path))
			d.queueChange(ev)

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}

type queuedImport struct {
	event    InboxEvent
	queuedAt time.Time
}

// queueChange records a file event for debouncing.
func (d *Daemon) queueChange(ev InboxEvent) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[ev.Path] = queuedImport{event: ev, queuedAt: time.Now()}
}

func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges imports files that have been quiet long enough.
func (d *Daemon) processPendingChanges() {
	now := time.Now()

	d.changeQueueMu.Lock()
	var ready []InboxEvent
	for path, q := range d.changeQueue {
		if now.Sub(q.queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, q.event)
		delete(d.changeQueue, path)
	}
	d.changeQueueMu.Unlock()

	sort.Slice(ready, func(i, j int) bool { return ready[i].Path < ready[j].Path })
	for _, ev := range ready {
		d.importFile(ev)
	}
}

// importFile imports one inbox file and files it under processed/ or
// failed/.
func (d *Daemon) importFile(ev InboxEvent) {
	path := ev.Path
	log := d.logger.With(zap.String("file", filepath.Base(path)))

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		log.Warn("failed to read inbox file", zap.Error(err))
		return
	}

	res, err := d.importer.Import(d.ctx, data, ev.Format)
	dest := ProcessedDir
	if err != nil {
		dest = FailedDir
		log.Warn("inbox import rejected", zap.Error(err))
	} else {
		log.Info("inbox import applied", zap.Int("added", res.Added), zap.Int("skipped", res.Skipped))
		if d.dashboard != nil {
			if msg, err := dashboard.NewMessage(dashboard.MessageTypeImport, res); err == nil {
				d.dashboard.Broadcast(msg)
			}
		}
	}

	target := filepath.Join(filepath.Dir(path), dest, time.Now().UTC().Format("20060102T150405")+"-"+filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		log.Warn("failed to move inbox file", zap.String("dest", dest), zap.Error(err))
	}
}
