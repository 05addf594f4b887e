package progress

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fechador/internal/processor"
)

func TestReporterCompletes(t *testing.T) {
	log := processor.NewLog("b", 3)
	var seen []string
	r := NewReporter(3, ObserverFunc(func(e Event) { seen = append(seen, e.Label()) }))

	assert.Equal(t, Running, r.Tick(log))

	log.Append(processor.Success("/in/a.jpg", "/out/a.jpg"))
	log.Append(processor.ItemFailure("/in/b.jpg", "decode: bad"))
	assert.Equal(t, Running, r.Tick(log))

	processed, succeeded, failed, total := r.Counts()
	assert.Equal(t, []int{2, 1, 1, 3}, []int{processed, succeeded, failed, total})
	assert.Equal(t, "✗ b.jpg", r.Last().Label())

	log.Append(processor.Success("/in/c.jpg", "/out/c.jpg"))
	// All items are in but the batch is not marked done yet.
	assert.Equal(t, Running, r.Tick(log))

	log.MarkDone()
	assert.Equal(t, Completed, r.Tick(log))
	assert.Equal(t, Completed, r.Tick(log))

	assert.Equal(t, []string{"✓ a.jpg", "✗ b.jpg", "✓ c.jpg"}, seen)

	res := r.Result()
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "/in/b.jpg", res.Failures[0].Source)
	assert.Empty(t, res.Fatal)
}

func TestReporterFatalStopsDraining(t *testing.T) {
	log := processor.NewLog("b", 5)
	log.Append(processor.Success("/in/a.jpg", "/out/a.jpg"))
	log.Append(processor.FatalFailure("pool failed"))
	log.Append(processor.Success("/in/b.jpg", "/out/b.jpg"))

	var events int
	r := NewReporter(5, ObserverFunc(func(Event) { events++ }))
	assert.Equal(t, FatalAbort, r.Tick(log))

	res := r.Result()
	assert.Equal(t, FatalAbort, res.State)
	assert.Equal(t, "pool failed", res.Fatal)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, events)

	log.MarkDone()
	assert.Equal(t, FatalAbort, r.Tick(log))
	assert.Equal(t, 1, r.Result().Processed)
}

func TestReporterDoneWithMissingItems(t *testing.T) {
	log := processor.NewLog("b", 2)
	log.Append(processor.Success("/in/a.jpg", "/out/a.jpg"))
	log.MarkDone()

	r := NewReporter(2)
	assert.Equal(t, FatalAbort, r.Tick(log))
	assert.Contains(t, r.Result().Fatal, "1 of 2")
}

func TestPoll(t *testing.T) {
	log := processor.NewLog("b", 2)
	go func() {
		time.Sleep(10 * time.Millisecond)
		log.Append(processor.Success("/in/a.jpg", "/out/a.jpg"))
		time.Sleep(10 * time.Millisecond)
		log.Append(processor.Success("/in/b.jpg", "/out/b.jpg"))
		log.MarkDone()
	}()

	r := NewReporter(2)
	assert.Equal(t, Completed, Poll(log, r, 5*time.Millisecond))
	assert.Equal(t, 2, r.Result().Succeeded)
}

func TestLineObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLineObserver(&buf)
	obs.OnEvent(Event{Index: 3, Total: 12, Outcome: processor.Success("/x/photo.jpg", "/o/photo.jpg")})
	obs.OnEvent(Event{Index: 3, Total: 12, Outcome: processor.FatalFailure("boom")})

	assert.Equal(t, "[ 3/12] ✓ photo.jpg\n", buf.String())
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	obs := NewLogObserver(logger)

	obs.OnEvent(Event{Index: 1, Total: 2, Outcome: processor.ItemFailure("/x/a.jpg", "bad")})
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "source=/x/a.jpg")
}
