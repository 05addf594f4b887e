package processor

import (
	"fmt"

	"fechador/internal/stamp"
)

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	KindSuccess OutcomeKind = iota
	KindItemFailure
	KindFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindItemFailure:
		return "item_failure"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one item, or the single fatal entry that ends a
// batch. Source is empty for fatal outcomes.
type Outcome struct {
	Kind   OutcomeKind
	Source string
	Dest   string
	Detail string
}

func Success(source, dest string) Outcome {
	return Outcome{Kind: KindSuccess, Source: source, Dest: dest}
}

func ItemFailure(source, detail string) Outcome {
	return Outcome{Kind: KindItemFailure, Source: source, Detail: detail}
}

func FatalFailure(detail string) Outcome {
	return Outcome{Kind: KindFatal, Detail: detail}
}

// Options configures a single batch.
type Options struct {
	OutputDir string
	Style     stamp.Style
	Turbo     bool
	// Parallelism is the number of available cores; zero means
	// runtime.NumCPU(). Turbo runs Parallelism-1 workers.
	Parallelism int
}

// Job is one item handed to a worker.
type Job struct {
	Index  int
	Source string
}

// AnnotateFunc stamps a single item.
type AnnotateFunc func(source, outputDir string, style stamp.Style) stamp.Result
