package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Mschirtzinger/quotesync/internal/engine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingRunner struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (r *countingRunner) RunCycle(ctx context.Context) (engine.Result, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
		}
	}
	return engine.Result{Outcome: engine.OutcomeUnchanged}, r.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil runner")
	}
	if _, err := New(&countingRunner{}, &Config{Interval: 0}); err == nil {
		t.Error("expected error for zero interval")
	}
	s, err := New(&countingRunner{}, nil)
	if err != nil {
		t.Fatalf("New with nil config failed: %v", err)
	}
	if s.config.Interval != 30*time.Second {
		t.Errorf("default interval = %s, want 30s", s.config.Interval)
	}
}

func TestScheduler_InitialAndPeriodic(t *testing.T) {
	r := &countingRunner{}
	s, err := New(r, &Config{Interval: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if !s.IsRunning() {
		t.Error("scheduler should be running after Start()")
	}
	waitFor(t, func() bool { return r.calls.Load() >= 3 })
}

func TestScheduler_StartTwice(t *testing.T) {
	s, _ := New(&countingRunner{}, &Config{Interval: time.Hour, SkipInitial: true})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestScheduler_Trigger(t *testing.T) {
	r := &countingRunner{}
	s, _ := New(r, &Config{Interval: time.Hour, SkipInitial: true})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if !s.Trigger() {
		t.Error("first Trigger should be accepted")
	}
	waitFor(t, func() bool { return r.calls.Load() == 1 })
}

func TestScheduler_TriggerCoalesces(t *testing.T) {
	r := &countingRunner{delay: 50 * time.Millisecond}
	s, _ := New(r, &Config{Interval: time.Hour, SkipInitial: true})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	s.Trigger()
	waitFor(t, func() bool { return r.calls.Load() == 1 })

	// One pending request while the first cycle runs; the rest coalesce.
	accepted := 0
	for i := 0; i < 5; i++ {
		if s.Trigger() {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("expected 1 accepted trigger while busy, got %d", accepted)
	}

	waitFor(t, func() bool { return r.calls.Load() == 2 })
	time.Sleep(80 * time.Millisecond)
	if n := r.calls.Load(); n != 2 {
		t.Errorf("expected 2 cycles, got %d", n)
	}
}

func TestScheduler_PauseResume(t *testing.T) {
	r := &countingRunner{}
	s, _ := New(r, &Config{Interval: 10 * time.Millisecond, SkipInitial: true})
	s.Pause()
	if !s.Paused() {
		t.Error("expected paused")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	time.Sleep(60 * time.Millisecond)
	if n := r.calls.Load(); n != 0 {
		t.Errorf("paused scheduler ran %d periodic cycles", n)
	}

	s.Trigger()
	waitFor(t, func() bool { return r.calls.Load() == 1 })

	s.Resume()
	waitFor(t, func() bool { return r.calls.Load() >= 3 })
}

func TestScheduler_StopWaitsAndIsIdempotent(t *testing.T) {
	r := &countingRunner{delay: time.Hour}
	s, _ := New(r, &Config{Interval: time.Hour})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool { return r.calls.Load() == 1 })

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the in-flight cycle")
	}

	if s.IsRunning() {
		t.Error("scheduler should not be running after Stop()")
	}
	s.Stop()
}

func TestScheduler_ContextCancel(t *testing.T) {
	r := &countingRunner{}
	s, _ := New(r, &Config{Interval: time.Hour, SkipInitial: true})
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()
	s.Stop()
}

func TestScheduler_OnResult(t *testing.T) {
	wantErr := errors.New("persist failed")
	r := &countingRunner{err: wantErr}

	var got atomic.Value
	s, _ := New(r, &Config{
		Interval: time.Hour,
		OnResult: func(_ engine.Result, err error) { got.Store(err) },
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return got.Load() != nil })
	if err, _ := got.Load().(error); !errors.Is(err, wantErr) {
		t.Errorf("OnResult error = %v, want %v", err, wantErr)
	}
	if s.Cycles() != 1 {
		t.Errorf("Cycles() = %d, want 1", s.Cycles())
	}
}
