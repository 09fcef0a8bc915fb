package engine

import (
	"sync"
	"time"
)

// StatusKind identifies a user-facing sync status.
type StatusKind string

const (
	StatusSyncing         StatusKind = "syncing"
	StatusOffline         StatusKind = "offline"
	StatusNoData          StatusKind = "no_data"
	StatusSynced          StatusKind = "synced"
	StatusUpToDate        StatusKind = "up_to_date"
	StatusAlreadyUpToDate StatusKind = "already_up_to_date"
	StatusError           StatusKind = "error"
)

var statusMessages = map[StatusKind]string{
	StatusSyncing:         "syncing…",
	StatusOffline:         "offline/unreachable",
	StatusNoData:          "sync failed – no data",
	StatusSynced:          "synced – new data",
	StatusUpToDate:        "up to date",
	StatusAlreadyUpToDate: "already up to date",
	StatusError:           "sync failed – local error",
}

// Message returns the default text for the kind.
func (k StatusKind) Message() string {
	if m, ok := statusMessages[k]; ok {
		return m
	}
	return string(k)
}

// Status is reported to sinks as a cycle progresses.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
	CycleID string     `json:"cycle_id,omitempty"`
	At      time.Time  `json:"at"`
}

// Sink receives status updates and category-set changes. Calls happen on
// the goroutine running the operation and must not block.
type Sink interface {
	OnStatus(Status)
	OnCategories([]string)
}

// SinkFunc adapts a function to a Sink that ignores category changes.
type SinkFunc func(Status)

func (f SinkFunc) OnStatus(s Status)       { f(s) }
func (f SinkFunc) OnCategories([]string) {}

// notifier fans out to registered sinks and owns the delayed downgrade from
// "synced" to "up to date".
type notifier struct {
	mu     sync.RWMutex
	sinks  []Sink
	now    func() time.Time
	settle time.Duration

	timerMu sync.Mutex
	timer   *time.Timer
}

func (n *notifier) add(s Sink) {
	if s == nil {
		return
	}
	n.mu.Lock()
	n.sinks = append(n.sinks, s)
	n.mu.Unlock()
}

func (n *notifier) snapshot() []Sink {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Sink, len(n.sinks))
	copy(out, n.sinks)
	return out
}

// emit cancels any pending downgrade and reports kind.
func (n *notifier) emit(kind StatusKind, cycleID string) Status {
	n.cancelSettle()
	return n.send(kind, cycleID)
}

func (n *notifier) send(kind StatusKind, cycleID string) Status {
	st := Status{Kind: kind, Message: kind.Message(), CycleID: cycleID, At: n.now()}
	for _, s := range n.snapshot() {
		s.OnStatus(st)
	}
	return st
}

// settleLater reports StatusUpToDate after the settle delay unless another
// status is emitted first.
func (n *notifier) settleLater(cycleID string) {
	n.timerMu.Lock()
	defer n.timerMu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(n.settle, func() {
		n.timerMu.Lock()
		current := n.timer == t
		if current {
			n.timer = nil
		}
		n.timerMu.Unlock()
		if current {
			n.send(StatusUpToDate, cycleID)
		}
	})
	n.timer = t
}

func (n *notifier) cancelSettle() {
	n.timerMu.Lock()
	defer n.timerMu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *notifier) categories(cats []string) {
	for _, s := range n.snapshot() {
		s.OnCategories(cats)
	}
}
