package prefix

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// DigestSize is the length of a single name digest.
const DigestSize = 16

// Hash128 returns the 128-bit digest used for storage key prefixes: two
// xxhash64 rounds with seeds 0 and 1, each written little-endian.
func Hash128(data []byte) [DigestSize]byte {
	var out [DigestSize]byte
	for seed := uint64(0); seed < 2; seed++ {
		d := xxhash.NewWithSeed(seed)
		_, _ = d.Write(data)
		binary.LittleEndian.PutUint64(out[seed*8:], d.Sum64())
	}
	return out
}

// CategoryPrefix returns the 16-byte key prefix of a category.
func CategoryPrefix(category string) []byte {
	h := Hash128([]byte(category))
	return h[:]
}

// ItemPrefix returns the 32-byte key prefix of an item inside a category.
func ItemPrefix(category, item string) []byte {
	c := Hash128([]byte(category))
	i := Hash128([]byte(item))
	out := make([]byte, 0, 2*DigestSize)
	out = append(out, c[:]...)
	return append(out, i[:]...)
}
