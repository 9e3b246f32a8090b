package source

import (
	"context"

	"github.com/storage-analysis/internal/queue"
)

// SourceTypeMemory serves records held in memory.
const SourceTypeMemory SourceType = "memory"

func init() {
	Register(SourceTypeMemory, func(cfg *SourceConfig) (RecordSource, error) {
		return NewMemorySource(cfg.name(), nil), nil
	})
}

// MemorySource produces a fixed slice of records.
type MemorySource struct {
	name    string
	records []queue.Record
}

// NewMemorySource creates a source over records.
func NewMemorySource(name string, records []queue.Record) *MemorySource {
	return &MemorySource{name: name, records: records}
}

// Type implements RecordSource.
func (s *MemorySource) Type() SourceType { return SourceTypeMemory }

// Name implements RecordSource.
func (s *MemorySource) Name() string { return s.name }

// Produce implements RecordSource.
func (s *MemorySource) Produce(ctx context.Context, q *queue.Queue) error {
	defer q.Close()
	for _, r := range s.records {
		if err := q.Push(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close implements RecordSource.
func (s *MemorySource) Close() error { return nil }
