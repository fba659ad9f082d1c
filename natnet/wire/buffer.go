// Package wire implements the low-level byte-cursor reader decoders build on,
// plus the 4-byte message header and command-framing shared by both the
// command and data channels.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the width of the message-id + body-length header that
// precedes every NatNet packet in both directions.
const HeaderSize = 4

// Buffer is a cursor over an immutable byte slice. Every read advances the
// cursor by exactly the width of the value read; a read that would run past
// the end of the slice returns an error and leaves the cursor unchanged.
type Buffer struct {
	data   []byte
	cursor int
}

// NewBuffer wraps data for sequential reads. data is never copied or
// mutated; callers must not modify it while the Buffer is in use.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Len returns the total number of bytes in the underlying slice.
func (b *Buffer) Len() int { return len(b.data) }

// Pos returns the current cursor position.
func (b *Buffer) Pos() int { return b.cursor }

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int { return len(b.data) - b.cursor }

func (b *Buffer) need(n int) error {
	if n < 0 || b.cursor+n > len(b.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRead, n, b.cursor, len(b.data)-b.cursor)
	}
	return nil
}

// ReadUint16 reads a little-endian uint16 and advances the cursor by 2.
func (b *Buffer) ReadUint16() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(b.data[b.cursor:])
	b.cursor += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32 and advances the cursor by 4.
func (b *Buffer) ReadUint32() (uint32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(b.data[b.cursor:])
	b.cursor += 4
	return v, nil
}

// ReadUint64 reads a little-endian uint64 and advances the cursor by 8.
func (b *Buffer) ReadUint64() (uint64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(b.data[b.cursor:])
	b.cursor += 8
	return v, nil
}

// ReadUint8 reads a single byte and advances the cursor by 1.
func (b *Buffer) ReadUint8() (uint8, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	v := b.data[b.cursor]
	b.cursor++
	return v, nil
}

// ReadFloat32 reads a little-endian IEEE-754 single and advances by 4.
func (b *Buffer) ReadFloat32() (float32, error) {
	bits, err := b.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// ReadFloat64 reads a little-endian IEEE-754 double and advances by 8.
func (b *Buffer) ReadFloat64() (float64, error) {
	bits, err := b.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// ReadFloat32Array reads n consecutive float32s densely, in declaration
// order, and advances the cursor by 4*n.
func (b *Buffer) ReadFloat32Array(n int) ([]float32, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative array length %d", ErrShortRead, n)
	}
	if err := b.need(4 * n); err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		v, err := b.ReadFloat32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ReadString reads bytes up to and including the first NUL and decodes the
// bytes before it as UTF-8. The cursor advances past the NUL.
func (b *Buffer) ReadString() (string, error) {
	return b.readString(-1, false)
}

// ReadStringBounded behaves like ReadString but never reads past maxLength
// bytes from the cursor. If static is true the cursor always advances by
// exactly maxLength regardless of where the NUL fell; otherwise it advances
// only past the NUL found within that window (or maxLength if none is
// found).
func (b *Buffer) ReadStringBounded(maxLength int, static bool) (string, error) {
	if maxLength < 0 {
		return "", fmt.Errorf("%w: negative max length %d", ErrShortRead, maxLength)
	}
	return b.readString(maxLength, static)
}

func (b *Buffer) readString(maxLength int, static bool) (string, error) {
	var window []byte
	if maxLength < 0 {
		window = b.data[b.cursor:]
	} else {
		if err := b.need(maxLength); err != nil {
			return "", err
		}
		window = b.data[b.cursor : b.cursor+maxLength]
	}

	nulAt := bytes.IndexByte(window, 0)
	var raw []byte
	var consumed int
	switch {
	case nulAt >= 0:
		raw = window[:nulAt]
		consumed = nulAt + 1
	case maxLength >= 0:
		// Bounded read with no NUL in the window: the whole window is string
		// content, nothing left to skip past.
		raw = window
		consumed = maxLength
	default:
		return "", fmt.Errorf("%w: unterminated string", ErrShortRead)
	}

	if !isValidUTF8String(raw) {
		return "", fmt.Errorf("%w: invalid utf-8 in string field", ErrDecode)
	}

	if static {
		if maxLength < 0 {
			return "", fmt.Errorf("%w: static string read requires a max length", ErrShortRead)
		}
		b.cursor += maxLength
	} else {
		b.cursor += consumed
	}
	return string(raw), nil
}
