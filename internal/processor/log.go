package processor

import "sync"

// Log is the append-only record of a batch. The distributor's collector is
// the only writer; readers drain it by offset and never see entries move.
type Log struct {
	id    string
	total int

	mu       sync.Mutex
	outcomes []Outcome
	done     bool
	finished chan struct{}
}

func NewLog(id string, total int) *Log {
	return &Log{
		id:       id,
		total:    total,
		outcomes: make([]Outcome, 0, total),
		finished: make(chan struct{}),
	}
}

// ID is the batch identifier used in logs and reports.
func (l *Log) ID() string { return l.id }

// Total is the number of items the batch was started with.
func (l *Log) Total() int { return l.total }

// Append records an outcome. Appends after MarkDone are dropped.
func (l *Log) Append(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return
	}
	l.outcomes = append(l.outcomes, o)
}

// Len returns the number of outcomes appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.outcomes)
}

// Since returns a copy of the outcomes appended at or after offset.
func (l *Log) Since(offset int) []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(l.outcomes) {
		return nil
	}
	out := make([]Outcome, len(l.outcomes)-offset)
	copy(out, l.outcomes[offset:])
	return out
}

// MarkDone flags the batch as finished. Calling it twice is harmless.
func (l *Log) MarkDone() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return
	}
	l.done = true
	close(l.finished)
}

func (l *Log) IsDone() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Finished is closed once MarkDone has been called.
func (l *Log) Finished() <-chan struct{} { return l.finished }
