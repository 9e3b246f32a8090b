package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/storage-analysis/internal/analyzer"
	"github.com/storage-analysis/internal/formatter"
	"github.com/storage-analysis/internal/queue"
	"github.com/storage-analysis/internal/repository"
	"github.com/storage-analysis/internal/schema"
	"github.com/storage-analysis/internal/source"
	"github.com/storage-analysis/internal/statistics"
	"github.com/storage-analysis/internal/storage"
	"github.com/storage-analysis/pkg/compression"
	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/telemetry"
	"github.com/storage-analysis/pkg/utils"
)

// InfoRequest describes one size breakdown run.
type InfoRequest struct {
	Source source.SourceConfig
	// Schema overrides the configured schema file.
	Schema schema.Provider
	// Focus limits the printed tree to one category.
	Focus string
	// Upload publishes the JSON report when storage is configured.
	Upload bool
}

// InfoResult is the outcome of Info.
type InfoResult struct {
	Network    string
	Result     statistics.Result
	Report     *formatter.Report
	ReportPath string
	ReportURL  string
	RunID      int64
	Timer      *utils.Timer
}

// Info scans a snapshot and prints its size breakdown per category.
func (s *Service) Info(ctx context.Context, req InfoRequest) (*InfoResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.info")
	res, err := s.info(ctx, req)
	if res != nil {
		span.SetAttributes(attribute.String("network", res.Network))
	}
	telemetry.EndSpan(span, err)
	return res, err
}

func (s *Service) info(ctx context.Context, req InfoRequest) (*InfoResult, error) {
	timer := utils.NewTimer("info", utils.WithLogger(s.logger), utils.WithClock(s.clock))
	startedAt := s.clock.Now()

	index, err := s.loadIndex(ctx, req.Schema, timer)
	if err != nil {
		return nil, err
	}

	cfg := s.config.Analysis
	level, err := compression.ParseLevel(cfg.Level)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "analysis.level", err)
	}
	estimator, err := compression.NewEstimator(cfg.Estimator, level)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "analysis.estimator", err)
	}
	defer compression.Close(estimator)

	src, err := s.openSource(&req.Source)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	an := analyzer.New(index, estimator,
		analyzer.WithWorkers(cfg.WorkerCount()),
		analyzer.WithBackoff(cfg.Backoff),
		analyzer.WithLogger(s.logger),
		analyzer.WithProgress(cfg.ProgressInterval, func(done int64) {
			s.logger.Info("Processed %d records", done)
		}),
	)

	res := &InfoResult{Network: src.Name(), Timer: timer}
	s.logger.Info("Analyzing %s with %d workers (%s estimator)", res.Network, an.Workers(), estimator.Name())

	err = timer.Time("scan", func() error {
		return s.scan(ctx, src, func(ctx context.Context, q *queue.Queue) error {
			var err error
			res.Result, err = an.Run(ctx, q)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	err = timer.Time("render", func() error {
		tree := formatter.NewTreeFormatter(s.config.Output.Verbose, req.Focus)
		return tree.Format(s.out, res.Network, res.Result)
	})
	if err != nil {
		return nil, err
	}

	res.Report = formatter.NewReport(res.Network, res.Result)
	err = timer.Time("report", func() error {
		var err error
		res.ReportPath, err = formatter.WriteReport(s.config.Output.JSONDir, s.config.Output.Gzip, res.Report)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "write report", err)
	}
	s.logger.Info("Results written to %s", res.ReportPath)

	if req.Upload {
		if err := s.upload(ctx, res, startedAt, timer); err != nil {
			return nil, err
		}
	}

	run := &repository.Run{
		Network:    res.Network,
		Command:    repository.CommandInfo,
		Source:     string(src.Type()),
		Estimator:  estimator.Name(),
		Workers:    an.Workers(),
		ReportPath: res.ReportPath,
		Duration:   timer.Total(),
		CreatedAt:  startedAt,
	}
	run.Summarize(res.Result)
	res.RunID = s.record(ctx, run)

	timer.LogSummary()
	return res, nil
}

func (s *Service) upload(ctx context.Context, res *InfoResult, at time.Time, timer *utils.Timer) error {
	if s.storage == nil {
		s.logger.Warn("Upload requested but storage is not enabled")
		return nil
	}
	return timer.Time("upload", func() error {
		url, err := storage.Publish(ctx, s.storage, s.config.Storage.Prefix, res.Network, at, res.ReportPath)
		if err != nil {
			return err
		}
		res.ReportURL = url
		s.logger.Info("Report uploaded to %s", url)
		return nil
	})
}

// record saves run when a history database is configured. Failures are
// logged; the scan result stands on its own.
func (s *Service) record(ctx context.Context, run *repository.Run) int64 {
	if s.repos == nil {
		return 0
	}
	if err := s.repos.Runs.SaveRun(ctx, run); err != nil {
		s.logger.Warn("Failed to record run: %v", err)
		return 0
	}
	s.logger.Debug("Recorded run %d", run.ID)
	return run.ID
}

// History lists recorded runs, newest first.
func (s *Service) History(ctx context.Context, network string, limit int) ([]*repository.Run, error) {
	if s.repos == nil {
		return nil, apperrors.New(apperrors.CodeConfigError, "run history requires database.enabled")
	}
	return s.repos.Runs.ListRuns(ctx, network, limit)
}
