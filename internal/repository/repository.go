// Package repository persists summaries of finished runs.
package repository

import (
	"context"
	"time"

	"github.com/storage-analysis/internal/statistics"
)

// Command names the CLI operation that produced a run.
type Command string

const (
	CommandInfo Command = "info"
	CommandGrep Command = "grep"
)

// Run is the summary of one scan.
type Run struct {
	ID        int64
	Network   string
	Command   Command
	Source    string
	Estimator string
	Workers   int

	// Info totals.
	NumKeys        uint64
	Size           uint64
	CompressedSize uint64

	// Grep counters.
	Scanned  uint64
	Matched  uint64
	Subjects []string

	ReportPath string
	Duration   time.Duration
	CreatedAt  time.Time

	Categories []CategorySummary
}

// CategorySummary is the per-category part of a Run.
type CategorySummary struct {
	Name           string
	Size           uint64
	CompressedSize uint64
	NumKeys        uint64
}

// Summarize copies the totals of result into run.
func (run *Run) Summarize(result statistics.Result) {
	totals := result.Totals()
	run.NumKeys = totals.NumKeys
	run.Size = totals.Size
	run.CompressedSize = totals.CompressedSize
	run.Scanned = totals.NumKeys

	run.Categories = make([]CategorySummary, 0, len(result))
	for _, cat := range result.Sorted() {
		t := cat.Totals()
		run.Categories = append(run.Categories, CategorySummary{
			Name:           cat.Name,
			Size:           t.Size,
			CompressedSize: t.CompressedSize,
			NumKeys:        t.NumKeys,
		})
	}
}

// RunRepository stores and retrieves run summaries.
type RunRepository interface {
	// SaveRun inserts run with its categories and sets run.ID.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID, categories included.
	GetRun(ctx context.Context, id int64) (*Run, error)

	// ListRuns returns the newest runs for network, without categories.
	// An empty network lists every network.
	ListRuns(ctx context.Context, network string, limit int) ([]*Run, error)
}
