package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storage-analysis/internal/queue"
	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/scale"
	"github.com/storage-analysis/pkg/utils"
)

func drain(t *testing.T, src RecordSource) []queue.Record {
	t.Helper()
	q := queue.New(4)
	errCh := make(chan error, 1)
	go func() { errCh <- src.Produce(context.Background(), q) }()

	var out []queue.Record
	for {
		rec, ok, err := q.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, rec)
	}
	require.NoError(t, <-errCh)
	return out
}

var sample = []queue.Record{
	{Key: []byte("alpha"), Value: []byte("1")},
	{Key: []byte("beta"), Value: bytes.Repeat([]byte{9}, 100)},
	{Key: []byte("gamma"), Value: nil},
}

func TestNetworkName(t *testing.T) {
	tests := map[string]string{
		"/snapshots/polkadot.snap":  "polkadot",
		"kusama.snapshot.bin":       "kusama.snapshot",
		"westend":                   "westend",
		"/data/rococo-db/":          "rococo-db",
		".hidden":                   ".hidden",
		"":                          "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, NetworkName(in), "path %q", in)
	}
}

func TestRegistry(t *testing.T) {
	types := RegisteredTypes()
	assert.Contains(t, types, SourceTypeMemory)
	assert.Contains(t, types, SourceTypeSnapshot)
	assert.Contains(t, types, SourceTypeBadger)
	assert.True(t, IsRegistered(SourceTypeSnapshot))

	_, err := Create(&SourceConfig{Type: "rpc"})
	assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))

	src, err := Create(&SourceConfig{Type: SourceTypeMemory, Path: "/tmp/polkadot.snap"})
	require.NoError(t, err)
	assert.Equal(t, "polkadot", src.Name())
	assert.Equal(t, SourceTypeMemory, src.Type())
	assert.NoError(t, src.Close())
}

func TestSourceConfig_Options(t *testing.T) {
	cfg := &SourceConfig{Options: map[string]interface{}{
		"prefix": "26aa", "limit": float64(3), "read_only": false,
	}}
	assert.Equal(t, "26aa", cfg.GetString("prefix", ""))
	assert.Equal(t, 3, cfg.GetInt("limit", 0))
	assert.False(t, cfg.GetBool("read_only", true))
	assert.Equal(t, "x", cfg.GetString("missing", "x"))

	empty := &SourceConfig{}
	assert.Equal(t, 7, empty.GetInt("limit", 7))
}

func TestMemorySource(t *testing.T) {
	got := drain(t, NewMemorySource("mem", sample))
	assert.Equal(t, sample, got)
}

func TestMemorySource_ClosesQueueOnCancel(t *testing.T) {
	q := queue.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemorySource("mem", sample).Produce(ctx, q)
	assert.ErrorIs(t, err, context.Canceled)

	// The queue is closed even though production failed.
	for {
		if _, state := q.Poll(); state == queue.PollClosed {
			break
		}
	}
}

func writeSnapshot(t *testing.T, records []queue.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polkadot.snap")
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, records))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestSnapshotSource(t *testing.T) {
	path := writeSnapshot(t, sample)

	src, err := Create(&SourceConfig{Type: SourceTypeSnapshot, Path: path})
	require.NoError(t, err)
	assert.Equal(t, "polkadot", src.Name())

	got := drain(t, src)
	require.Len(t, got, 3)
	assert.Equal(t, sample[0], got[0])
	assert.Equal(t, sample[1], got[1])
	assert.Empty(t, got[2].Value)

	snap := src.(*SnapshotSource)
	assert.Equal(t, SnapshotHeader{SnapshotVersion: 4, StateVersion: 1, Entries: 3}, snap.Header())
}

func TestSnapshotSource_DeadEntriesAndVersionWarnings(t *testing.T) {
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	enc.WriteCompact(3)
	enc.WriteU8(0)
	enc.WriteCompact(2)
	enc.WriteBytes([]byte("live"))
	enc.WriteBytes([]byte("v"))
	enc.WriteI32(2)
	enc.WriteBytes([]byte("dead"))
	enc.WriteBytes([]byte("v"))
	enc.WriteI32(0)
	require.NoError(t, enc.Err())

	path := filepath.Join(t.TempDir(), "old.snap")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	var logs bytes.Buffer
	src := NewSnapshotSource("old", path, utils.NewDefaultLogger(utils.LevelDebug, &logs))
	got := drain(t, src)

	require.Len(t, got, 1)
	assert.Equal(t, []byte("live"), got[0].Key)
	assert.Equal(t, uint64(1), src.Dead())
	assert.Contains(t, logs.String(), "Unexpected snapshot version 3")
	assert.Contains(t, logs.String(), "Unexpected state version 0")
}

func TestSnapshotSource_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, sample))
	path := filepath.Join(t.TempDir(), "cut.snap")
	require.NoError(t, os.WriteFile(path, buf.Bytes()[:buf.Len()-3], 0644))

	q := queue.New(10)
	err := NewSnapshotSource("cut", path, nil).Produce(context.Background(), q)
	assert.True(t, apperrors.IsSourceError(err))
}

func TestSnapshotSource_MissingFile(t *testing.T) {
	q := queue.New(1)
	err := NewSnapshotSource("x", filepath.Join(t.TempDir(), "nope"), nil).Produce(context.Background(), q)
	assert.True(t, apperrors.IsSourceError(err))
	_, state := q.Poll()
	assert.Equal(t, queue.PollClosed, state)
}

func writeBadger(t *testing.T, records []queue.Record) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "state")
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.NoError(t, err)
	err = db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			if err := txn.Set(r.Key, r.Value); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return dir
}

func TestBadgerSource(t *testing.T) {
	dir := writeBadger(t, sample)

	src, err := Create(&SourceConfig{Type: SourceTypeBadger, Path: dir})
	require.NoError(t, err)
	defer src.Close()

	got := drain(t, src)
	require.Len(t, got, 3)
	// Badger iterates in key order.
	assert.Equal(t, []byte("alpha"), got[0].Key)
	assert.Equal(t, []byte("beta"), got[1].Key)
	assert.Equal(t, sample[1].Value, got[1].Value)
	assert.Equal(t, []byte("gamma"), got[2].Key)
}

func TestBadgerSource_Prefix(t *testing.T) {
	dir := writeBadger(t, sample)

	src, err := Create(&SourceConfig{
		Type:    SourceTypeBadger,
		Path:    dir,
		Options: map[string]interface{}{"prefix": "62"}, // "b"
	})
	require.NoError(t, err)
	defer src.Close()

	got := drain(t, src)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("beta"), got[0].Key)
}

func TestBadgerSource_BadPrefix(t *testing.T) {
	_, err := Create(&SourceConfig{Type: SourceTypeBadger, Path: t.TempDir(), Options: map[string]interface{}{"prefix": "zz"}})
	assert.Error(t, err)
}
