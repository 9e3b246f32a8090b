// Package service wires sources, the prefix index and the scan engines into
// the info and grep operations.
package service

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/storage-analysis/internal/prefix"
	"github.com/storage-analysis/internal/queue"
	"github.com/storage-analysis/internal/repository"
	"github.com/storage-analysis/internal/schema"
	"github.com/storage-analysis/internal/source"
	"github.com/storage-analysis/internal/storage"
	"github.com/storage-analysis/pkg/config"
	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/telemetry"
	"github.com/storage-analysis/pkg/utils"
)

// Service runs scans according to a Config.
type Service struct {
	config  *config.Config
	logger  utils.Logger
	clock   utils.Clock
	out     io.Writer
	repos   *repository.Repositories
	storage storage.Storage
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for timing and run timestamps.
func WithClock(clock utils.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithOutput sets where trees and match lines are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Service) { s.out = w }
}

// WithRepositories sets the run history store instead of opening one from
// configuration.
func WithRepositories(repos *repository.Repositories) Option {
	return func(s *Service) { s.repos = repos }
}

// WithStorage sets the report store instead of creating one from
// configuration.
func WithStorage(st storage.Storage) Option {
	return func(s *Service) { s.storage = st }
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stderr)
	}

	s := &Service{
		config: cfg,
		logger: logger,
		clock:  utils.NewRealClock(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize opens the optional run history database and report storage.
func (s *Service) Initialize(ctx context.Context) error {
	if s.repos == nil && s.config.Database.Enabled {
		s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)
		repos, err := repository.Open(&s.config.Database)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDatabaseError, "initialize database", err)
		}
		s.repos = repos
	}

	if s.storage == nil && s.config.Storage.Enabled {
		s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)
		st, err := storage.NewStorage(&s.config.Storage)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeStorageError, "initialize storage", err)
		}
		s.storage = st
	}

	return nil
}

// Close releases the database connection.
func (s *Service) Close() error {
	if s.repos != nil {
		return s.repos.Close()
	}
	return nil
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// loadIndex reads the schema and builds the prefix index.
func (s *Service) loadIndex(ctx context.Context, provider schema.Provider, timer *utils.Timer) (*prefix.Index, error) {
	if provider == nil {
		if s.config.Schema.Path == "" {
			return nil, apperrors.New(apperrors.CodeConfigError, "no schema file given")
		}
		provider = schema.NewFileProvider(s.config.Schema.Path)
	}

	var categories []schema.Category
	err := timer.Time("load schema", func() error {
		var err error
		categories, err = provider.Categories(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Loaded %d categories", len(categories))

	var index *prefix.Index
	_ = timer.Time("build index", func() error {
		index = prefix.Build(categories, prefix.WithLogger(s.logger))
		return nil
	})
	if n := len(index.Collisions()); n > 0 {
		s.logger.Warn("%d prefix collisions while building the index", n)
	}
	return index, nil
}

// openSource creates the record source described by cfg.
func (s *Service) openSource(cfg *source.SourceConfig) (source.RecordSource, error) {
	if cfg.Type == "" {
		cfg.Type = source.SourceType(s.config.Source.Type)
	}
	if cfg.Path == "" {
		cfg.Path = s.config.Source.Path
	}
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	return source.Create(cfg)
}

// scan runs src into a fresh queue and consume out of it. The producer
// always closes the queue; a failing consumer cancels the producer. The
// first error wins.
func (s *Service) scan(ctx context.Context, src source.RecordSource, consume func(ctx context.Context, q *queue.Queue) error) error {
	ctx, span := telemetry.StartSpan(ctx, "service.scan",
		attribute.String("source", string(src.Type())),
		attribute.String("network", src.Name()),
	)

	q := queue.New(s.config.Analysis.QueueCapacity)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := src.Produce(gctx, q); err != nil {
			return fmt.Errorf("produce records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return consume(gctx, q)
	})

	err := g.Wait()
	telemetry.EndSpan(span, err)
	return err
}
