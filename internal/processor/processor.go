package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"fechador/internal/stamp"
)

var (
	ErrNoItems        = errors.New("no images selected")
	ErrNoOutputDir    = errors.New("output directory required")
	ErrOutputRequired = errors.New("images come from different folders; pass --output")
)

// Recorder receives per-item measurements. metrics.Recorder implements it.
type Recorder interface {
	SetWorkers(n int)
	Observe(o Outcome, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SetWorkers(int)                 {}
func (nopRecorder) Observe(Outcome, time.Duration) {}

// Distributor runs batches either on a bounded worker pool (turbo) or
// sequentially, always off the caller's goroutine.
type Distributor struct {
	annotate AnnotateFunc
	logger   *slog.Logger
	recorder Recorder
}

type Option func(*Distributor)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Distributor) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(d *Distributor) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithAnnotator replaces the per-item primitive.
func WithAnnotator(fn AnnotateFunc) Option {
	return func(d *Distributor) {
		if fn != nil {
			d.annotate = fn
		}
	}
}

func New(stamper stamp.Stamper, opts ...Option) *Distributor {
	d := &Distributor{
		annotate: stamper.Apply,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WorkerCount keeps one core free for the caller: max(1, parallelism-1).
func WorkerCount(parallelism int) int {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return max(1, parallelism-1)
}

// Validate rejects a batch before anything is dispatched.
func Validate(items []string, style stamp.Style) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	return style.Validate()
}

// Start validates the batch, creates the output directory and dispatches
// items in the background. Outcomes arrive in the returned Log in
// completion order; the Log is marked done when the batch ends.
func (d *Distributor) Start(ctx context.Context, items []string, opts Options) (*Log, error) {
	if err := Validate(items, opts.Style); err != nil {
		return nil, err
	}
	if opts.OutputDir == "" {
		return nil, ErrNoOutputDir
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	batch := make([]string, len(items))
	copy(batch, items)

	log := NewLog(uuid.NewString(), len(batch))
	go d.run(ctx, log, batch, opts)
	return log, nil
}

// Run is the blocking form of Start.
func (d *Distributor) Run(ctx context.Context, items []string, opts Options) ([]Outcome, error) {
	log, err := d.Start(ctx, items, opts)
	if err != nil {
		return nil, err
	}
	<-log.Finished()
	return log.Since(0), nil
}

func (d *Distributor) run(ctx context.Context, log *Log, items []string, opts Options) {
	logger := d.logger.With("batch", log.ID())
	started := time.Now()

	defer log.MarkDone()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("batch aborted", "panic", r)
			log.Append(FatalFailure(fmt.Sprintf("%v\n%s", r, debug.Stack())))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lock := flock.New(LockPath(opts.OutputDir))
	locked, err := lock.TryLock()
	if err != nil {
		d.abort(logger, log, fmt.Sprintf("lock output directory %s: %v", opts.OutputDir, err))
		return
	}
	if !locked {
		d.abort(logger, log, fmt.Sprintf("output directory %s is in use by another batch", opts.OutputDir))
		return
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release output directory lock", "error", err)
		}
	}()

	jobs, rejected := planJobs(items, opts.OutputDir)
	for _, o := range rejected {
		d.record(logger, log, result{outcome: o})
	}

	workers := 1
	if opts.Turbo {
		workers = WorkerCount(opts.Parallelism)
	}
	d.recorder.SetWorkers(workers)
	logger.Info("batch started",
		"items", len(items),
		"turbo", opts.Turbo,
		"workers", workers,
		"output", opts.OutputDir,
	)

	var fatal bool
	if opts.Turbo {
		fatal = d.runPool(ctx, cancel, logger, log, jobs, opts, workers)
	} else {
		fatal = d.runSequential(ctx, logger, log, jobs, opts)
	}

	logger.Info("batch finished",
		"outcomes", log.Len(),
		"fatal", fatal,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
}

type result struct {
	outcome Outcome
	elapsed time.Duration
}

func (d *Distributor) runSequential(ctx context.Context, logger *slog.Logger, log *Log, jobs []Job, opts Options) bool {
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			d.abort(logger, log, cancelDetail(err))
			return true
		}
		res := d.process(job, opts)
		d.record(logger, log, res)
		if res.outcome.Kind == KindFatal {
			return true
		}
	}
	return false
}

func (d *Distributor) runPool(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *slog.Logger,
	log *Log,
	jobs []Job,
	opts Options,
	workers int,
) bool {
	jobCh := make(chan Job)
	results := make(chan result)

	// Jobs received after cancellation are dropped so no new item starts.
	var dropped atomic.Bool
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if ctx.Err() != nil {
					dropped.Store(true)
					continue
				}
				results <- d.process(job, opts)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	producerErr := make(chan error, 1)
	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-ctx.Done():
				producerErr <- ctx.Err()
				return
			}
		}
		producerErr <- nil
	}()

	fatal := false
	for res := range results {
		if fatal {
			continue
		}
		d.record(logger, log, res)
		if res.outcome.Kind == KindFatal {
			fatal = true
			cancel()
		}
	}

	err := <-producerErr
	if err == nil && dropped.Load() {
		err = ctx.Err()
	}
	if err != nil && !fatal {
		d.abort(logger, log, cancelDetail(err))
		return true
	}
	return fatal
}

// process runs the primitive for one job. A panic here escaped the
// primitive's own boundary, so it ends the batch.
func (d *Distributor) process(job Job, opts Options) (res result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = result{
				outcome: FatalFailure(fmt.Sprintf("worker failed on %s: %v\n%s", job.Source, r, debug.Stack())),
				elapsed: time.Since(start),
			}
		}
	}()

	out := d.annotate(job.Source, opts.OutputDir, opts.Style)
	res.elapsed = time.Since(start)
	if !out.OK() {
		res.outcome = ItemFailure(job.Source, detailOf(out.Err))
		return res
	}
	res.outcome = Success(job.Source, out.Dest)
	return res
}

func (d *Distributor) record(logger *slog.Logger, log *Log, res result) {
	log.Append(res.outcome)
	d.recorder.Observe(res.outcome, res.elapsed)

	switch res.outcome.Kind {
	case KindSuccess:
		logger.Debug("item stamped", "source", res.outcome.Source, "dest", res.outcome.Dest, "elapsed", res.elapsed)
	case KindItemFailure:
		logger.Debug("item failed", "source", res.outcome.Source, "detail", firstLine(res.outcome.Detail))
	case KindFatal:
		logger.Error("batch aborted", "detail", firstLine(res.outcome.Detail))
	}
}

func (d *Distributor) abort(logger *slog.Logger, log *Log, detail string) {
	d.record(logger, log, result{outcome: FatalFailure(detail)})
}

// planJobs turns items into jobs. An item whose destination is the item
// itself is never written over. Items whose base name (compared
// case-insensitively) was already claimed would overwrite that output, so
// they fail up front too. Sources living in outputDir claim their names
// first so no other item can land on them.
func planJobs(items []string, outputDir string) ([]Job, []Outcome) {
	jobs := make([]Job, 0, len(items))
	var rejected []Outcome
	seen := make(map[string]string, len(items))

	inPlace := make(map[int]bool)
	for i, src := range items {
		if isOwnDestination(src, outputDir) {
			inPlace[i] = true
			seen[strings.ToLower(filepath.Base(src))] = src
		}
	}

	for i, src := range items {
		if inPlace[i] {
			rejected = append(rejected, ItemFailure(src,
				fmt.Sprintf("destination is the source file; annotated copies must go to another folder than %s", outputDir)))
			continue
		}
		base := filepath.Base(src)
		key := strings.ToLower(base)
		if first, dup := seen[key]; dup {
			rejected = append(rejected, ItemFailure(src,
				fmt.Sprintf("destination %s collides with %s", base, first)))
			continue
		}
		seen[key] = src
		jobs = append(jobs, Job{Index: i, Source: src})
	}
	return jobs, rejected
}

// isOwnDestination reports whether writing src into outputDir would replace
// src itself, either by path or through a link to the same file.
func isOwnDestination(src, outputDir string) bool {
	dest := filepath.Join(outputDir, filepath.Base(src))
	absSrc, errSrc := filepath.Abs(src)
	absDest, errDest := filepath.Abs(dest)
	if errSrc == nil && errDest == nil && absSrc == absDest {
		return true
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	destInfo, err := os.Stat(dest)
	if err != nil {
		return false
	}
	return os.SameFile(srcInfo, destInfo)
}

func detailOf(err error) string {
	var itemErr *stamp.ItemError
	if errors.As(err, &itemErr) {
		return itemErr.Detail()
	}
	return err.Error()
}

func cancelDetail(err error) string {
	return fmt.Sprintf("batch cancelled: %v", err)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// LockPath is the advisory lock file guarding outputDir. It lives outside
// the directory so it never shows up among the annotated copies.
func LockPath(outputDir string) string {
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		abs = outputDir
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return filepath.Join(os.TempDir(), "fechador-"+hex.EncodeToString(sum[:8])+".lock")
}
