// Package progress turns a batch's outcome log into progress events. A
// Reporter is driven by ticks from the caller's own loop, so rendering never
// waits on workers.
package progress

import (
	"fmt"
	"path/filepath"
	"time"

	"fechador/internal/processor"
)

// DefaultInterval is the polling period of the progress surface.
const DefaultInterval = 50 * time.Millisecond

type State int

const (
	Running State = iota
	FatalAbort
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case FatalAbort:
		return "fatal"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source is the read side of a batch log.
type Source interface {
	Since(offset int) []processor.Outcome
	IsDone() bool
}

// Event is one drained outcome numbered for display.
type Event struct {
	Index   int
	Total   int
	Outcome processor.Outcome
}

func (e Event) Glyph() string {
	switch e.Outcome.Kind {
	case processor.KindSuccess:
		return "✓"
	case processor.KindItemFailure:
		return "✗"
	default:
		return "!"
	}
}

func (e Event) Label() string {
	if e.Outcome.Source == "" {
		return e.Glyph() + " " + e.Outcome.Kind.String()
	}
	return e.Glyph() + " " + filepath.Base(e.Outcome.Source)
}

type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Result is the reporter's view of a batch.
type Result struct {
	State     State
	Total     int
	Processed int
	Succeeded int
	Failures  []processor.Outcome
	Fatal     string
}

// Reporter tracks counts across ticks. It is not safe for concurrent use;
// it belongs to the loop that ticks it.
type Reporter struct {
	total     int
	offset    int
	processed int
	succeeded int
	failures  []processor.Outcome
	fatal     string
	last      Event
	state     State
	observers []Observer
}

func NewReporter(total int, observers ...Observer) *Reporter {
	return &Reporter{total: total, observers: observers}
}

// Tick drains everything appended since the previous tick and advances the
// state machine. Terminal states are sticky.
func (r *Reporter) Tick(src Source) State {
	if r.state != Running {
		return r.state
	}

	// Read done before draining so every outcome appended before the batch
	// finished is drained in this same tick.
	done := src.IsDone()

	for _, o := range src.Since(r.offset) {
		r.offset++
		if o.Kind == processor.KindFatal {
			r.fatal = o.Detail
			r.state = FatalAbort
			r.notify(Event{Index: r.processed, Total: r.total, Outcome: o})
			return r.state
		}

		r.processed++
		if o.Kind == processor.KindSuccess {
			r.succeeded++
		} else {
			r.failures = append(r.failures, o)
		}
		r.last = Event{Index: r.processed, Total: r.total, Outcome: o}
		r.notify(r.last)
	}

	if done {
		if r.processed >= r.total {
			r.state = Completed
		} else {
			r.fatal = fmt.Sprintf("batch ended with %d of %d items unaccounted for", r.total-r.processed, r.total)
			r.state = FatalAbort
		}
	}
	return r.state
}

func (r *Reporter) notify(e Event) {
	for _, o := range r.observers {
		o.OnEvent(e)
	}
}

func (r *Reporter) State() State { return r.state }

// Last is the most recent item event, zero before the first one.
func (r *Reporter) Last() Event { return r.last }

func (r *Reporter) Counts() (processed, succeeded, failed, total int) {
	return r.processed, r.succeeded, len(r.failures), r.total
}

func (r *Reporter) Result() Result {
	failures := make([]processor.Outcome, len(r.failures))
	copy(failures, r.failures)
	return Result{
		State:     r.state,
		Total:     r.total,
		Processed: r.processed,
		Succeeded: r.succeeded,
		Failures:  failures,
		Fatal:     r.fatal,
	}
}

// Poll ticks r every interval until it reaches a terminal state. The
// distributor always finishes its log, so Poll always returns.
func Poll(src Source, r *Reporter, interval time.Duration) State {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if st := r.Tick(src); st != Running {
			return st
		}
		<-ticker.C
	}
}
