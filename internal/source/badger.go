package source

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/storage-analysis/internal/queue"
	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/utils"
)

// SourceTypeBadger iterates a badger key/value store holding raw state.
const SourceTypeBadger SourceType = "badger"

func init() {
	Register(SourceTypeBadger, NewBadgerSource)
}

// BadgerSource streams every key of a badger database, optionally limited to
// a key prefix given as hex in the "prefix" option.
type BadgerSource struct {
	name   string
	db     *badger.DB
	prefix []byte
	logger utils.Logger
}

// NewBadgerSource opens the database at cfg.Path read-only.
func NewBadgerSource(cfg *SourceConfig) (RecordSource, error) {
	var prefix []byte
	if p := cfg.GetString("prefix", ""); p != "" {
		var err error
		if prefix, err = hex.DecodeString(p); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfigError, "badger prefix option", err)
		}
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithReadOnly(cfg.GetBool("read_only", true)).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", cfg.Path, err)
	}

	return &BadgerSource{name: cfg.name(), db: db, prefix: prefix, logger: cfg.logger()}, nil
}

// Type implements RecordSource.
func (s *BadgerSource) Type() SourceType { return SourceTypeBadger }

// Name implements RecordSource.
func (s *BadgerSource) Name() string { return s.name }

// Produce implements RecordSource.
func (s *BadgerSource) Produce(ctx context.Context, q *queue.Queue) error {
	defer q.Close()

	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := q.Push(ctx, queue.Record{Key: item.KeyCopy(nil), Value: value}); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSourceError, "iterate badger", err)
	}

	s.logger.Info("Read %d records from badger store %s", n, s.name)
	return nil
}

// Close implements RecordSource.
func (s *BadgerSource) Close() error {
	return s.db.Close()
}
