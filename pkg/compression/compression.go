// Package compression provides interchangeable compressed-size estimators.
//
// An Estimator answers one question: how many bytes would this payload take
// once compressed? The aggregation pipeline calls it for every record key and
// value, so implementations are safe for concurrent use and pool their
// encoder state.
package compression

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Level represents the compression level.
type Level int

const (
	// LevelFastest prioritizes speed over compression ratio
	LevelFastest Level = 1
	// LevelDefault balances speed and compression ratio
	LevelDefault Level = 6
	// LevelBest prioritizes compression ratio over speed
	LevelBest Level = 9
)

// ParseLevel maps "fastest", "default" and "best" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fastest", "fast":
		return LevelFastest, nil
	case "", "default":
		return LevelDefault, nil
	case "best":
		return LevelBest, nil
	default:
		return 0, fmt.Errorf("unknown compression level: %q", s)
	}
}

// Estimator reports the compressed size of a payload.
type Estimator interface {
	// Size returns the number of bytes data occupies after compression.
	Size(data []byte) int
	// Name returns the human-readable name of the estimator
	Name() string
}

// SizeFunc adapts a plain function to the Estimator interface.
type SizeFunc func(data []byte) int

// Size calls f(data).
func (f SizeFunc) Size(data []byte) int {
	return f(data)
}

// Name returns "func".
func (f SizeFunc) Name() string {
	return "func"
}

// countingWriter discards output and counts bytes.
type countingWriter struct {
	n int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}

// ============================================================================
// Deflate
// ============================================================================

// DeflateEstimator measures raw deflate output, the default probe.
type DeflateEstimator struct {
	level int
	pool  sync.Pool
}

// NewDeflateEstimator creates a deflate estimator at the given level.
func NewDeflateEstimator(level Level) *DeflateEstimator {
	e := &DeflateEstimator{level: int(level)}
	e.pool.New = func() any {
		w, _ := flate.NewWriter(nil, e.level)
		return w
	}
	return e
}

// Size returns the deflated length of data.
func (e *DeflateEstimator) Size(data []byte) int {
	w, _ := e.pool.Get().(*flate.Writer)
	defer e.pool.Put(w)

	var cw countingWriter
	w.Reset(&cw)
	_, _ = w.Write(data)
	_ = w.Close()
	return cw.n
}

// Name returns "deflate".
func (e *DeflateEstimator) Name() string {
	return "deflate"
}

// ============================================================================
// Gzip
// ============================================================================

// GzipEstimator measures gzip-framed deflate output.
type GzipEstimator struct {
	level int
	pool  sync.Pool
}

// NewGzipEstimator creates a gzip estimator at the given level.
func NewGzipEstimator(level Level) *GzipEstimator {
	e := &GzipEstimator{level: int(level)}
	e.pool.New = func() any {
		w, _ := gzip.NewWriterLevel(nil, e.level)
		return w
	}
	return e
}

// Size returns the gzipped length of data.
func (e *GzipEstimator) Size(data []byte) int {
	w, _ := e.pool.Get().(*gzip.Writer)
	defer e.pool.Put(w)

	var cw countingWriter
	w.Reset(&cw)
	_, _ = w.Write(data)
	_ = w.Close()
	return cw.n
}

// Name returns "gzip".
func (e *GzipEstimator) Name() string {
	return "gzip"
}

// ============================================================================
// Zstd
// ============================================================================

// ZstdEstimator measures zstd frame size. EncodeAll is safe for concurrent use.
type ZstdEstimator struct {
	encoder *zstd.Encoder
}

// NewZstdEstimator creates a zstd estimator.
func NewZstdEstimator(level Level) (*ZstdEstimator, error) {
	zstdLevel := zstd.SpeedDefault
	switch level {
	case LevelFastest:
		zstdLevel = zstd.SpeedFastest
	case LevelBest:
		zstdLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstdLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &ZstdEstimator{encoder: encoder}, nil
}

// Size returns the zstd frame length of data.
func (e *ZstdEstimator) Size(data []byte) int {
	return len(e.encoder.EncodeAll(data, nil))
}

// Name returns "zstd".
func (e *ZstdEstimator) Name() string {
	return "zstd"
}

// Close releases the encoder.
func (e *ZstdEstimator) Close() {
	_ = e.encoder.Close()
}

// ============================================================================
// S2 / LZ4 / None
// ============================================================================

// S2Estimator measures S2 block size.
type S2Estimator struct{}

// Size returns the S2-encoded length of data.
func (S2Estimator) Size(data []byte) int {
	return len(s2.Encode(nil, data))
}

// Name returns "s2".
func (S2Estimator) Name() string {
	return "s2"
}

var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Estimator measures LZ4 block size.
type LZ4Estimator struct{}

// Size returns the LZ4 block length of data. Incompressible input is
// stored raw, so its size is len(data).
func (LZ4Estimator) Size(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lc.CompressBlock(data, dst)
	if err != nil || n == 0 {
		return len(data)
	}
	return n
}

// Name returns "lz4".
func (LZ4Estimator) Name() string {
	return "lz4"
}

// NoneEstimator reports the raw length.
type NoneEstimator struct{}

// Size returns len(data).
func (NoneEstimator) Size(data []byte) int {
	return len(data)
}

// Name returns "none".
func (NoneEstimator) Name() string {
	return "none"
}

// ============================================================================
// Factory
// ============================================================================

var factories = map[string]func(Level) (Estimator, error){
	"deflate": func(l Level) (Estimator, error) { return NewDeflateEstimator(l), nil },
	"gzip":    func(l Level) (Estimator, error) { return NewGzipEstimator(l), nil },
	"zstd":    func(l Level) (Estimator, error) { return NewZstdEstimator(l) },
	"s2":      func(Level) (Estimator, error) { return S2Estimator{}, nil },
	"lz4":     func(Level) (Estimator, error) { return LZ4Estimator{}, nil },
	"none":    func(Level) (Estimator, error) { return NoneEstimator{}, nil },
}

// Default returns the deflate estimator at the default level.
func Default() Estimator {
	return NewDeflateEstimator(LevelDefault)
}

// NewEstimator creates an estimator by name. An empty name selects deflate.
func NewEstimator(name string, level Level) (Estimator, error) {
	if name == "" {
		name = "deflate"
	}
	factory, ok := factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown estimator %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return factory(level)
}

// Names returns the registered estimator names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Closeable is an optional interface for estimators that hold resources.
type Closeable interface {
	Close()
}

// Close closes an estimator if it implements Closeable.
func Close(e Estimator) {
	if closer, ok := e.(Closeable); ok {
		closer.Close()
	}
}
