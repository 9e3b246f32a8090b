package scale

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCompact_KnownVectors(t *testing.T) {
	tests := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x04}},
		{42, []byte{0xa8}},
		{63, []byte{0xfc}},
		{64, []byte{0x01, 0x01}},
		{69, []byte{0x15, 0x01}},
		{16383, []byte{0xfd, 0xff}},
		{16384, []byte{0x02, 0x00, 0x01, 0x00}},
		{1<<30 - 1, []byte{0xfe, 0xff, 0xff, 0xff}},
		{1 << 30, []byte{0x03, 0x00, 0x00, 0x00, 0x40}},
		{1<<64 - 1, []byte{0x13, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeCompact(tt.v), "value %d", tt.v)

		got, err := NewDecoder(bytes.NewReader(tt.want)).ReadCompact()
		require.NoError(t, err)
		assert.Equal(t, tt.v, got)
	}
}

func TestEncodeU16(t *testing.T) {
	assert.Equal(t, []byte{0xd0, 0x07}, EncodeU16(2000))
	assert.Equal(t, []byte{0x00, 0x00}, EncodeU16(0))
}

func TestEncoderDecoder_Record(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteCompact(4)
	enc.WriteU8(1)
	enc.WriteBytes([]byte("key"))
	enc.WriteBytes(bytes.Repeat([]byte{7}, 300))
	enc.WriteI32(-2)
	require.NoError(t, enc.Err())

	dec := NewDecoder(&buf)
	version, err := dec.ReadCompact()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), version)

	state, err := dec.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), state)

	key, err := dec.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("key"), key)

	value, err := dec.ReadBytes()
	require.NoError(t, err)
	assert.Len(t, value, 300)

	rc, err := dec.ReadI32()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), rc)

	_, err = dec.ReadU8()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_Truncated(t *testing.T) {
	// Length prefix says 8 bytes, only 2 follow.
	_, err := NewDecoder(bytes.NewReader([]byte{0x20, 0x01, 0x02})).ReadBytes()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = NewDecoder(bytes.NewReader([]byte{0x01})).ReadCompact()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecoder_Limits(t *testing.T) {
	dec := NewDecoder(bytes.NewReader(EncodeCompact(1024)))
	dec.SetMaxLen(16)
	_, err := dec.ReadBytes()
	assert.ErrorIs(t, err, ErrTooLarge)

	// Big-integer mode with 9 bytes cannot fit a uint64.
	_, err = NewDecoder(bytes.NewReader([]byte{0x17})).ReadCompact()
	assert.ErrorIs(t, err, ErrTooLarge)
}
