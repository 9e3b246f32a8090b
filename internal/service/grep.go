package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/storage-analysis/internal/formatter"
	"github.com/storage-analysis/internal/queue"
	"github.com/storage-analysis/internal/repository"
	"github.com/storage-analysis/internal/schema"
	"github.com/storage-analysis/internal/search"
	"github.com/storage-analysis/internal/source"
	"github.com/storage-analysis/internal/subject"
	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/telemetry"
	"github.com/storage-analysis/pkg/utils"
)

// GrepRequest describes one subject search.
type GrepRequest struct {
	Source   source.SourceConfig
	Schema   schema.Provider
	Subjects []subject.Subject
	// Ignore drops matches whose key falls in this category. Empty uses the
	// configured value.
	Ignore string
}

// GrepResult is the outcome of Grep.
type GrepResult struct {
	Network  string
	Counters search.Counters
	RunID    int64
	Timer    *utils.Timer
}

// Grep scans a snapshot for the request's subjects and prints every match.
func (s *Service) Grep(ctx context.Context, req GrepRequest) (*GrepResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.grep",
		attribute.Int("subjects", len(req.Subjects)),
	)
	res, err := s.grep(ctx, req)
	telemetry.EndSpan(span, err)
	return res, err
}

func (s *Service) grep(ctx context.Context, req GrepRequest) (*GrepResult, error) {
	timer := utils.NewTimer("grep", utils.WithLogger(s.logger), utils.WithClock(s.clock))
	startedAt := s.clock.Now()

	ignore := req.Ignore
	if ignore == "" {
		ignore = s.config.Search.Ignore
	}

	// Subjects are checked before any file is opened.
	if len(req.Subjects) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "at least one search subject is required")
	}
	index, err := s.loadIndex(ctx, req.Schema, timer)
	if err != nil {
		return nil, err
	}
	engine, err := search.New(index, req.Subjects,
		search.WithIgnore(ignore),
		search.WithBackoff(s.config.Analysis.Backoff),
		search.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	src, err := s.openSource(&req.Source)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	res := &GrepResult{Network: src.Name(), Timer: timer}
	printer := formatter.NewMatchPrinter(s.out)

	err = timer.Time("scan", func() error {
		return s.scan(ctx, src, func(ctx context.Context, q *queue.Queue) error {
			var err error
			res.Counters, err = engine.Run(ctx, q, printer.Print)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if err := printer.Summary(res.Counters); err != nil {
		return nil, err
	}

	run := &repository.Run{
		Network:   res.Network,
		Command:   repository.CommandGrep,
		Source:    string(src.Type()),
		Workers:   1,
		Scanned:   res.Counters.Scanned,
		Matched:   res.Counters.Matched,
		Duration:  timer.Total(),
		CreatedAt: startedAt,
	}
	for _, sub := range req.Subjects {
		run.Subjects = append(run.Subjects, sub.String())
	}
	res.RunID = s.record(ctx, run)

	timer.LogSummary()
	return res, nil
}
