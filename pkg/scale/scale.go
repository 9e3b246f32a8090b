// Package scale implements the subset of the SCALE codec needed to read
// chain-state snapshot files and to lay out derived account ids: compact
// integers, fixed-width little-endian integers, and length-prefixed byte
// vectors.
package scale

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
)

// ErrTooLarge is returned when a compact value or vector length exceeds the
// decoder limits.
var ErrTooLarge = errors.New("scale: value too large")

// EncodeCompact returns the compact encoding of v.
func EncodeCompact(v uint64) []byte {
	switch {
	case v < 1<<6:
		return []byte{byte(v << 2)}
	case v < 1<<14:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(v<<2)|0b01)
		return buf
	case v < 1<<30:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v<<2)|0b10)
		return buf
	default:
		n := (bits.Len64(v) + 7) / 8
		buf := make([]byte, 1+n)
		buf[0] = byte((n-4)<<2) | 0b11
		for i := 0; i < n; i++ {
			buf[1+i] = byte(v >> (8 * i))
		}
		return buf
	}
}

// EncodeU16 returns the fixed-width little-endian encoding of v.
func EncodeU16(v uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}

// Decoder reads SCALE values from a stream.
type Decoder struct {
	r      *bufio.Reader
	maxLen uint64
}

// DefaultMaxLen bounds decoded vector lengths.
const DefaultMaxLen = 1 << 30

// NewDecoder wraps r in a buffered decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 1<<20), maxLen: DefaultMaxLen}
}

// SetMaxLen changes the largest vector length ReadBytes accepts.
func (d *Decoder) SetMaxLen(n uint64) {
	d.maxLen = n
}

// ReadU8 reads one byte.
func (d *Decoder) ReadU8() (uint8, error) {
	return d.r.ReadByte()
}

// ReadI32 reads a little-endian int32.
func (d *Decoder) ReadI32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// ReadCompact reads a compact-encoded unsigned integer.
func (d *Decoder) ReadCompact() (uint64, error) {
	first, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}

	switch first & 0b11 {
	case 0b00:
		return uint64(first >> 2), nil
	case 0b01:
		second, err := d.r.ReadByte()
		if err != nil {
			return 0, unexpected(err)
		}
		return uint64(binary.LittleEndian.Uint16([]byte{first, second}) >> 2), nil
	case 0b10:
		buf := [4]byte{first}
		if _, err := io.ReadFull(d.r, buf[1:]); err != nil {
			return 0, unexpected(err)
		}
		return uint64(binary.LittleEndian.Uint32(buf[:]) >> 2), nil
	default:
		n := int(first>>2) + 4
		if n > 8 {
			return 0, fmt.Errorf("%w: compact integer of %d bytes", ErrTooLarge, n)
		}
		var buf [8]byte
		if _, err := io.ReadFull(d.r, buf[:n]); err != nil {
			return 0, unexpected(err)
		}
		return binary.LittleEndian.Uint64(buf[:]), nil
	}
}

// ReadBytes reads a compact length prefix followed by that many bytes.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadCompact()
	if err != nil {
		return nil, err
	}
	if n > d.maxLen {
		return nil, fmt.Errorf("%w: vector of %d bytes", ErrTooLarge, n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, unexpected(err)
	}
	return buf, nil
}

// unexpected turns a clean EOF in the middle of a value into ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Encoder writes SCALE values; used to build snapshot fixtures.
type Encoder struct {
	w   io.Writer
	err error
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

// WriteU8 writes one byte.
func (e *Encoder) WriteU8(v uint8) { e.write([]byte{v}) }

// WriteI32 writes a little-endian int32.
func (e *Encoder) WriteI32(v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	e.write(buf[:])
}

// WriteCompact writes a compact integer.
func (e *Encoder) WriteCompact(v uint64) { e.write(EncodeCompact(v)) }

// WriteBytes writes a length-prefixed byte vector.
func (e *Encoder) WriteBytes(p []byte) {
	e.WriteCompact(uint64(len(p)))
	e.write(p)
}

// Err returns the first write error.
func (e *Encoder) Err() error {
	return e.err
}
