package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/storage-analysis/internal/queue"
	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/scale"
	"github.com/storage-analysis/pkg/utils"
)

// SourceTypeSnapshot reads a SCALE-encoded state snapshot file.
const SourceTypeSnapshot SourceType = "snapshot"

// Expected header versions; other values are read but logged.
const (
	SnapshotVersion = 4
	StateVersion    = 1
)

func init() {
	Register(SourceTypeSnapshot, func(cfg *SourceConfig) (RecordSource, error) {
		return NewSnapshotSource(cfg.name(), cfg.Path, cfg.logger()), nil
	})
}

// SnapshotHeader is the fixed prefix of a snapshot file.
type SnapshotHeader struct {
	SnapshotVersion uint64
	StateVersion    uint8
	Entries         uint64
}

// SnapshotSource decodes a snapshot file laid out as
//
//	Compact<u16> snapshot version
//	u8           state version
//	Compact<u32> entry count
//	entry count x (Vec<u8> key, Vec<u8> value, i32 reference count)
//
// Entries with a non-positive reference count are dead and skipped.
type SnapshotSource struct {
	name   string
	path   string
	logger utils.Logger

	header SnapshotHeader
	dead   uint64
}

// NewSnapshotSource creates a source for the file at path.
func NewSnapshotSource(name, path string, logger utils.Logger) *SnapshotSource {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &SnapshotSource{name: name, path: path, logger: logger}
}

// Type implements RecordSource.
func (s *SnapshotSource) Type() SourceType { return SourceTypeSnapshot }

// Name implements RecordSource.
func (s *SnapshotSource) Name() string { return s.name }

// Header returns the header read by the last Produce call.
func (s *SnapshotSource) Header() SnapshotHeader { return s.header }

// Dead returns how many dead entries the last Produce call skipped.
func (s *SnapshotSource) Dead() uint64 { return s.dead }

// Produce implements RecordSource.
func (s *SnapshotSource) Produce(ctx context.Context, q *queue.Queue) error {
	defer q.Close()

	f, err := os.Open(s.path)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSourceError, "open snapshot", err)
	}
	defer f.Close()

	dec := scale.NewDecoder(f)
	if err := s.readHeader(dec); err != nil {
		return err
	}

	s.dead = 0
	for i := uint64(0); i < s.header.Entries; i++ {
		rec, rc, err := readEntry(dec)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeSourceError, fmt.Sprintf("read entry %d of %d", i, s.header.Entries), err)
		}
		if rc <= 0 {
			s.dead++
			continue
		}
		if err := q.Push(ctx, rec); err != nil {
			return err
		}
	}

	if _, err := dec.ReadU8(); !errors.Is(err, io.EOF) {
		s.logger.Warn("Snapshot %s has trailing data after %d entries", s.path, s.header.Entries)
	}
	if s.dead > 0 {
		s.logger.Debug("Skipped %d dead entries", s.dead)
	}
	return nil
}

func (s *SnapshotSource) readHeader(dec *scale.Decoder) error {
	version, err := dec.ReadCompact()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSourceError, "read snapshot version", err)
	}
	if version != SnapshotVersion {
		s.logger.Warn("Unexpected snapshot version %d, expected %d", version, SnapshotVersion)
	}

	state, err := dec.ReadU8()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSourceError, "read state version", err)
	}
	if state != StateVersion {
		s.logger.Warn("Unexpected state version %d, expected %d", state, StateVersion)
	}

	count, err := dec.ReadCompact()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSourceError, "read entry count", err)
	}

	s.header = SnapshotHeader{SnapshotVersion: version, StateVersion: state, Entries: count}
	s.logger.Info("Snapshot %s: version %d, state version %d, %d entries", s.name, version, state, count)
	return nil
}

func readEntry(dec *scale.Decoder) (queue.Record, int32, error) {
	key, err := dec.ReadBytes()
	if err != nil {
		return queue.Record{}, 0, err
	}
	value, err := dec.ReadBytes()
	if err != nil {
		return queue.Record{}, 0, err
	}
	rc, err := dec.ReadI32()
	if err != nil {
		return queue.Record{}, 0, err
	}
	return queue.Record{Key: key, Value: value}, rc, nil
}

// Close implements RecordSource.
func (s *SnapshotSource) Close() error { return nil }

// WriteSnapshot encodes records in the snapshot layout with reference count 1.
func WriteSnapshot(w io.Writer, records []queue.Record) error {
	enc := scale.NewEncoder(w)
	enc.WriteCompact(SnapshotVersion)
	enc.WriteU8(StateVersion)
	enc.WriteCompact(uint64(len(records)))
	for _, r := range records {
		enc.WriteBytes(r.Key)
		enc.WriteBytes(r.Value)
		enc.WriteI32(1)
	}
	return enc.Err()
}
