package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mschirtzinger/quotesync/internal/quote"
	"github.com/Mschirtzinger/quotesync/internal/reconcile"
	"github.com/Mschirtzinger/quotesync/internal/remote"
	"github.com/Mschirtzinger/quotesync/internal/store"
)

var (
	// ErrEmptyText is returned by Add when the text is blank.
	ErrEmptyText = errors.New("quote text cannot be empty")

	// ErrDuplicate is returned by Add when a quote with the same text exists.
	ErrDuplicate = errors.New("quote already exists")

	// ErrNoQuotes is returned by Random when the filter matches nothing.
	ErrNoQuotes = errors.New("no quotes available")
)

// State is the cycle state machine position.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateMerging
	StatePushing
	StateDone
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateMerging:
		return "merging"
	case StatePushing:
		return "pushing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Outcome classifies a finished (or skipped) cycle.
type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomeUnreachable Outcome = "unreachable"
	OutcomeNoData      Outcome = "no_data"
	OutcomeChanged     Outcome = "changed"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeFailed      Outcome = "failed"
)

// Result describes one call to RunCycle.
type Result struct {
	CycleID    string    `json:"cycle_id,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Skipped    int       `json:"skipped_items"`
	Appended   int       `json:"appended"`
	Replaced   int       `json:"replaced"`
	Protected  int       `json:"protected"`
	Pushed     int       `json:"pushed"`
	PushFailed int       `json:"push_failed"`
	Err        error     `json:"-"`
}

// Changed reports whether the cycle modified the collection.
func (r Result) Changed() bool {
	return r.Outcome == OutcomeChanged
}

// Store is the persistence the engine needs.
type Store interface {
	Load(ctx context.Context) (quote.Collection, bool, error)
	Save(ctx context.Context, c quote.Collection) error
	LoadPreference(ctx context.Context, key string) (string, bool, error)
	SavePreference(ctx context.Context, key, value string) error
	RecordCycle(ctx context.Context, c store.CycleRecord) error
}

// Gateway is the remote collection the engine reconciles against.
type Gateway interface {
	Fetch(ctx context.Context) remote.FetchResult
	PushAll(ctx context.Context, records []quote.Record) remote.PushReport
}

// Config holds engine configuration.
type Config struct {
	// SettleDelay is how long "synced" is shown before it is downgraded to
	// "up to date" (default: 3s).
	SettleDelay time.Duration

	Logger *zap.Logger

	// Sinks receive status and category updates.
	Sinks []Sink

	// Now overrides the clock.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SettleDelay: 3 * time.Second,
		Logger:      zap.NewNop(),
		Now:         time.Now,
	}
}

// Engine is the synchronization engine.
type Engine struct {
	store   Store
	gateway Gateway
	logger  *zap.Logger
	now     func() time.Time

	state atomic.Int32

	mu         sync.Mutex
	collection quote.Collection
	loaded     bool

	notify *notifier

	lastMu sync.RWMutex
	last   Result
}

// New creates an engine. Call Init before use, or let the first operation
// hydrate the collection lazily.
func New(st Store, gw Gateway, config *Config) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	settle := config.SettleDelay
	if settle <= 0 {
		settle = 3 * time.Second
	}

	e := &Engine{
		store:   st,
		gateway: gw,
		logger:  logger,
		now:     now,
		notify:  &notifier{now: now, settle: settle},
	}
	for _, s := range config.Sinks {
		e.notify.add(s)
	}
	return e, nil
}

// AddSink registers another status sink.
func (e *Engine) AddSink(s Sink) {
	e.notify.add(s)
}

// Close cancels any pending status downgrade.
func (e *Engine) Close() {
	e.notify.cancelSettle()
}

// State returns the current state machine position.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// LastResult returns the result of the most recent non-skipped cycle.
func (e *Engine) LastResult() Result {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.last
}

// Init hydrates the collection from the store, or seeds and persists the
// built-in set when nothing usable was saved. It is idempotent.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureLoaded(ctx)
}

// ensureLoaded must be called with e.mu held.
func (e *Engine) ensureLoaded(ctx context.Context) error {
	if e.loaded {
		return nil
	}

	c, ok, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if !ok {
		c = quote.Seed()
		if err := e.store.Save(ctx, c); err != nil {
			return fmt.Errorf("failed to persist seed collection: %w", err)
		}
		e.logger.Info("seeded collection", zap.Int("quotes", len(c)))
	} else {
		e.logger.Info("loaded collection", zap.Int("quotes", len(c)))
	}

	e.collection = c
	e.loaded = true
	return nil
}

// RunCycle performs one reconciliation cycle: fetch, merge, persist, push,
// report. Remote failures are reported through status and Result, never as
// an error; an error is returned only when loading or persisting fails.
func (e *Engine) RunCycle(ctx context.Context) (Result, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateFetching)) {
		e.logger.Debug("cycle already in progress, skipping", zap.Stringer("state", e.State()))
		return Result{Outcome: OutcomeSkipped}, nil
	}
	defer e.state.Store(int32(StateIdle))

	res := Result{CycleID: uuid.NewString(), StartedAt: e.now()}
	log := e.logger.With(zap.String("cycle", res.CycleID))

	e.mu.Lock()
	err := e.ensureLoaded(ctx)
	e.mu.Unlock()
	if err != nil {
		return e.fail(ctx, res, log, err)
	}

	e.notify.emit(StatusSyncing, res.CycleID)
	log.Debug("fetching remote snapshot")

	fetch := e.gateway.Fetch(ctx)
	res.Fetched = len(fetch.Records)
	res.Skipped = fetch.Skipped

	if !fetch.Reachable {
		res.Outcome = OutcomeUnreachable
		res.Err = fetch.Err
		e.state.Store(int32(StateDone))
		e.notify.emit(StatusOffline, res.CycleID)
		log.Warn("remote unreachable", zap.Error(fetch.Err))
		return e.finish(ctx, res, log), nil
	}
	if len(fetch.Records) == 0 {
		res.Outcome = OutcomeNoData
		e.state.Store(int32(StateDone))
		e.notify.emit(StatusNoData, res.CycleID)
		log.Warn("remote returned no usable records", zap.Int("skipped", fetch.Skipped))
		return e.finish(ctx, res, log), nil
	}

	e.state.Store(int32(StateMerging))
	merged, stats, err := e.mergeAndPersist(ctx, fetch.Records)
	if err != nil {
		return e.fail(ctx, res, log, err)
	}
	res.Appended = stats.Appended
	res.Replaced = stats.Replaced
	res.Protected = stats.Protected
	e.notify.categories(merged.Categories())

	e.state.Store(int32(StatePushing))
	if pending := merged.Unsynced(); len(pending) > 0 {
		report := e.gateway.PushAll(ctx, pending)
		res.Pushed = report.Succeeded
		res.PushFailed = report.Failed
		if report.Err != nil {
			log.Info("some pushes failed", zap.Int("failed", report.Failed), zap.Error(report.Err))
		}
	}

	e.state.Store(int32(StateDone))
	if stats.Changed() {
		res.Outcome = OutcomeChanged
		e.notify.emit(StatusSynced, res.CycleID)
		e.notify.settleLater(res.CycleID)
	} else {
		res.Outcome = OutcomeUnchanged
		e.notify.emit(StatusAlreadyUpToDate, res.CycleID)
	}
	return e.finish(ctx, res, log), nil
}

// mergeAndPersist merges remote records into the current collection and
// saves the result. The collection is swapped only after a successful save.
func (e *Engine) mergeAndPersist(ctx context.Context, records []quote.Record) (quote.Collection, reconcile.Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	merged, stats := reconcile.MergeStats(e.collection, records)
	if err := e.store.Save(ctx, merged); err != nil {
		return nil, stats, fmt.Errorf("failed to persist merged collection: %w", err)
	}
	e.collection = merged
	return merged.Clone(), stats, nil
}

func (e *Engine) fail(ctx context.Context, res Result, log *zap.Logger, err error) (Result, error) {
	res.Outcome = OutcomeFailed
	res.Err = err
	e.state.Store(int32(StateDone))
	e.notify.emit(StatusError, res.CycleID)
	log.Error("sync cycle failed", zap.Error(err))
	return e.finish(ctx, res, log), err
}

func (e *Engine) finish(ctx context.Context, res Result, log *zap.Logger) Result {
	res.FinishedAt = e.now()

	e.lastMu.Lock()
	e.last = res
	e.lastMu.Unlock()

	rec := store.CycleRecord{
		ID:         res.CycleID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Outcome:    string(res.Outcome),
		Fetched:    res.Fetched,
		Appended:   res.Appended,
		Replaced:   res.Replaced,
		Pushed:     res.Pushed,
		PushFailed: res.PushFailed,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := e.store.RecordCycle(ctx, rec); err != nil {
		log.Warn("failed to record cycle history", zap.Error(err))
	}

	log.Info("sync cycle finished",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("fetched", res.Fetched),
		zap.Int("appended", res.Appended),
		zap.Int("replaced", res.Replaced),
		zap.Int("pushed", res.Pushed),
		zap.Int("push_failed", res.PushFailed),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)))
	return res
}
