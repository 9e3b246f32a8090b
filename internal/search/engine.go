// Package search scans a record stream for subject byte patterns.
package search

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/storage-analysis/internal/prefix"
	"github.com/storage-analysis/internal/queue"
	"github.com/storage-analysis/internal/subject"
	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/telemetry"
	"github.com/storage-analysis/pkg/utils"
)

// Field identifies where a subject was found.
type Field uint8

const (
	// FieldKey is the record key.
	FieldKey Field = 1 << iota
	// FieldValue is the record value.
	FieldValue
)

// Both is a match in key and value.
const Both = FieldKey | FieldValue

func (f Field) String() string {
	switch f {
	case FieldKey:
		return "KEY"
	case FieldValue:
		return "VALUE"
	case Both:
		return "KEY-VALUE"
	default:
		return "NONE"
	}
}

// Match is one reported record.
type Match struct {
	Key      []byte
	Value    []byte
	Category prefix.CategorizedKey
	// KeySubjects and ValueSubjects list every subject found in the field,
	// in the order the subjects were given.
	KeySubjects   []subject.Subject
	ValueSubjects []subject.Subject
}

// Fields returns where the match occurred.
func (m Match) Fields() Field {
	var f Field
	if len(m.KeySubjects) > 0 {
		f |= FieldKey
	}
	if len(m.ValueSubjects) > 0 {
		f |= FieldValue
	}
	return f
}

// Attributed returns the subject a single-subject report credits for field:
// the last matching subject in input order.
func (m Match) Attributed(field Field) (subject.Subject, bool) {
	var list []subject.Subject
	switch field {
	case FieldKey:
		list = m.KeySubjects
	case FieldValue:
		list = m.ValueSubjects
	}
	if len(list) == 0 {
		return subject.Subject{}, false
	}
	return list[len(list)-1], true
}

// Counters are the totals of a finished run.
type Counters struct {
	Scanned uint64
	Matched uint64
}

// Engine searches records for a fixed set of subjects.
type Engine struct {
	index    *prefix.Index
	subjects []subject.Subject
	ignore   string
	backoff  time.Duration
	logger   utils.Logger
	clock    utils.Clock
}

// Option configures an Engine.
type Option func(*Engine)

// WithIgnore suppresses matches whose category name equals category exactly.
// An empty name disables the filter.
func WithIgnore(category string) Option {
	return func(e *Engine) {
		e.ignore = category
	}
}

// WithBackoff sets the empty-queue sleep.
func WithBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.backoff = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the clock used for backoff.
func WithClock(clock utils.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New creates an Engine. At least one subject is required.
func New(index *prefix.Index, subjects []subject.Subject, opts ...Option) (*Engine, error) {
	if len(subjects) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "at least one search subject is required")
	}
	e := &Engine{
		index:    index,
		subjects: append([]subject.Subject(nil), subjects...),
		backoff:  time.Millisecond,
		logger:   &utils.NullLogger{},
		clock:    utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Subjects returns the subjects searched for.
func (e *Engine) Subjects() []subject.Subject {
	return e.subjects
}

// Evaluate checks one record. ok is false when no subject occurs in it.
func (e *Engine) Evaluate(rec queue.Record) (Match, bool) {
	m := Match{Key: rec.Key, Value: rec.Value}
	for _, s := range e.subjects {
		if s.Matches(rec.Key) {
			m.KeySubjects = append(m.KeySubjects, s)
		}
		if s.Matches(rec.Value) {
			m.ValueSubjects = append(m.ValueSubjects, s)
		}
	}
	if m.Fields() == 0 {
		return Match{}, false
	}
	m.Category = e.index.Categorize(rec.Key)
	return m, true
}

// Run consumes q until it is closed, calling report for each match in
// arrival order. Ignored matches still count as scanned. A report error stops
// the run.
func (e *Engine) Run(ctx context.Context, q *queue.Queue, report func(Match) error) (Counters, error) {
	_, span := telemetry.StartSpan(ctx, "search.run",
		attribute.Int("subjects", len(e.subjects)),
		attribute.String("ignore", e.ignore),
	)

	for _, s := range e.subjects {
		e.logger.Info("Searching for subject: %s", s)
	}

	var c Counters
	for {
		rec, state := q.Poll()
		switch state {
		case queue.PollEmpty:
			e.clock.Sleep(e.backoff)
			continue
		case queue.PollClosed:
			span.SetAttributes(
				attribute.Int64("scanned", int64(c.Scanned)),
				attribute.Int64("matched", int64(c.Matched)),
			)
			telemetry.EndSpan(span, nil)
			return c, nil
		}

		c.Scanned++
		m, ok := e.Evaluate(rec)
		if !ok {
			continue
		}
		if e.ignore != "" && m.Category.Category() == e.ignore {
			e.logger.Debug("Ignoring match in %s", m.Category.Label())
			continue
		}

		c.Matched++
		if err := report(m); err != nil {
			telemetry.EndSpan(span, err)
			return c, err
		}
	}
}
