// Package scheduler drives periodic and on-demand sync cycles.
//
// A Scheduler runs one cycle as soon as it starts, then one per Interval.
// Trigger requests an extra cycle; requests that arrive while one is already
// pending are coalesced. Cycles never overlap because they all run on the
// scheduler goroutine.
//
// There is no backoff and no jitter. Every tick is independent, and a
// failed cycle is simply retried on the next one.
//
// Usage:
//
//	sched, err := scheduler.New(eng, &scheduler.Config{Interval: 30 * time.Second})
//	if err != nil {
//	    return err
//	}
//	if err := sched.Start(ctx); err != nil {
//	    return err
//	}
//	defer sched.Stop()
//
//	sched.Trigger() // sync now
package scheduler
