package pipeline

import (
	"context"
	"sync/atomic"
)

// State is the orchestrator's position in a run.
type State int32

const (
	StateIdle State = iota
	StateScraping
	StateScoring
	StatePersisting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateScraping:
		return "SCRAPING"
	case StateScoring:
		return "SCORING"
	case StatePersisting:
		return "PERSISTING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Active reports whether a run is in progress.
func (s State) Active() bool {
	return s == StateScraping || s == StateScoring || s == StatePersisting
}

// Stopper is polled between cycles. A true result ends the run early.
type Stopper interface {
	StopRequested(ctx context.Context) bool
}

// StopFlag is an in-process Stopper, typically set from a signal handler.
type StopFlag struct {
	stopped atomic.Bool
}

// Request asks the running batch to stop after the current cycle.
func (f *StopFlag) Request() {
	f.stopped.Store(true)
}

// Reset clears a previous request.
func (f *StopFlag) Reset() {
	f.stopped.Store(false)
}

func (f *StopFlag) StopRequested(context.Context) bool {
	return f.stopped.Load()
}

// resetter is implemented by stoppers whose requests outlive a run.
type resetter interface {
	Reset()
}

// anyStopper stops when any of its members does.
type anyStopper []Stopper

func (a anyStopper) StopRequested(ctx context.Context) bool {
	for _, s := range a {
		if s != nil && s.StopRequested(ctx) {
			return true
		}
	}
	return false
}

func (a anyStopper) Reset() {
	for _, s := range a {
		if r, ok := s.(resetter); ok {
			r.Reset()
		}
	}
}

// AnyOf combines stoppers. Nil members are ignored.
func AnyOf(stoppers ...Stopper) Stopper {
	return anyStopper(stoppers)
}
