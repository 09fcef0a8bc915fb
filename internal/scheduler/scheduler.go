package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Mschirtzinger/quotesync/internal/engine"
)

// Runner runs one sync cycle. *engine.Engine satisfies it.
type Runner interface {
	RunCycle(ctx context.Context) (engine.Result, error)
}

// Config holds scheduler configuration.
type Config struct {
	// Interval between periodic cycles (default: 30s)
	Interval time.Duration

	// SkipInitial disables the cycle run at start
	SkipInitial bool

	// OnResult is called after every cycle, on the scheduler goroutine
	OnResult func(engine.Result, error)

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval: 30 * time.Second,
		Logger:   zap.NewNop(),
	}
}

// Scheduler owns the sync timer.
type Scheduler struct {
	runner Runner
	config *Config
	logger *zap.Logger

	trigger chan struct{}
	paused  atomic.Bool
	cycles  atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler for runner.
func New(runner Runner, config *Config) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", config.Interval)
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		runner:  runner,
		config:  config,
		logger:  logger.Named("scheduler"),
		trigger: make(chan struct{}, 1),
	}, nil
}

// Start launches the scheduler goroutine. It returns immediately; the loop
// runs until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(loopCtx)

	s.logger.Info("scheduler started", zap.Duration("interval", s.config.Interval))
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped", zap.Int64("cycles", s.cycles.Load()))
}

// Trigger requests a cycle without waiting for it. It reports false when a
// request was already pending.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Pause suspends periodic cycles. Manual triggers still run.
func (s *Scheduler) Pause() {
	if !s.paused.Swap(true) {
		s.logger.Info("periodic sync paused")
	}
}

// Resume re-enables periodic cycles.
func (s *Scheduler) Resume() {
	if s.paused.Swap(false) {
		s.logger.Info("periodic sync resumed")
	}
}

// Paused reports whether periodic cycles are suspended.
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// IsRunning returns true if the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Cycles returns how many cycles the scheduler has run.
func (s *Scheduler) Cycles() int64 {
	return s.cycles.Load()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if !s.config.SkipInitial {
		s.run(ctx, "initial")
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if s.paused.Load() {
				continue
			}
			s.run(ctx, "interval")

		case <-s.trigger:
			s.run(ctx, "manual")
		}
	}
}

func (s *Scheduler) run(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Debug("running cycle", zap.String("reason", reason))

	res, err := s.runner.RunCycle(ctx)
	s.cycles.Add(1)
	if err != nil {
		s.logger.Warn("cycle failed", zap.String("reason", reason), zap.Error(err))
	}
	if s.config.OnResult != nil {
		s.config.OnResult(res, err)
	}
}
