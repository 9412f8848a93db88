// Package stream implements the seekable, endian-aware byte buffer that the
// UTF table, CPK, and MPK codecs use to read and write archive structures
// in memory before (or after) they are copied to or from a file.
package stream

import (
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"
)

// Order selects the wire byte order used by the typed scalar helpers. Raw
// byte-vector and string transfers never swap, regardless of Order: only
// the fixed-width scalar fields of @UTF tables and MPK records are
// endian-sensitive.
type Order bool

// LittleEndian and BigEndian name the two orders a Stream can be tagged
// with at construction. MPK archives are little-endian throughout; @UTF
// tables are big-endian.
const (
	LittleEndian Order = false
	BigEndian    Order = true
)

func (o Order) byteOrder() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Stream is an owning, growable byte buffer with a cursor. Seeking or
// writing past the current end zero-extends the buffer; reading past the
// end is an error.
type Stream struct {
	buf   []byte
	pos   int
	order Order
}

// New returns an empty Stream tagged with order.
func New(order Order) *Stream {
	return &Stream{order: order}
}

// FromBytes wraps an existing buffer, cursor at zero.
func FromBytes(b []byte, order Order) *Stream {
	return &Stream{buf: b, order: order}
}

// Bytes returns the underlying buffer. Callers must not retain it across
// further writes, which may reallocate.
func (s *Stream) Bytes() []byte { return s.buf }

// Len returns the size of the underlying buffer.
func (s *Stream) Len() int { return len(s.buf) }

// Tell returns the current cursor position.
func (s *Stream) Tell() int { return s.pos }

// Order reports the endianness typed scalar operations use.
func (s *Stream) Order() Order { return s.order }

// Seek moves the cursor, zero-extending the buffer if pos is beyond the
// current end.
func (s *Stream) Seek(pos int) {
	s.grow(pos)
	s.pos = pos
}

func (s *Stream) grow(to int) {
	if to > len(s.buf) {
		grown := make([]byte, to)
		copy(grown, s.buf)
		s.buf = grown
	}
}

// ReadBytes reads n raw bytes at the cursor, advancing it. No byte-order
// swap is applied; this is the primitive string and data-pool reads build
// on.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	if err := s.ReadAt(out, s.pos); err != nil {
		return nil, err
	}
	s.pos += n
	return out, nil
}

// ReadBytesAt reads n raw bytes at offset without moving the cursor. Used
// for @UTF data-pool references, which carry an explicit length.
func (s *Stream) ReadBytesAt(offset, n int) ([]byte, error) {
	out := make([]byte, n)
	if err := s.ReadAt(out, offset); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadAt copies len(dst) bytes starting at offset, without touching the
// cursor and without any byte-order swap. Reading out of bounds is fatal,
// matching the reference tooling's behavior on corrupt input.
func (s *Stream) ReadAt(dst []byte, offset int) error {
	if offset < 0 || offset+len(dst) > len(s.buf) {
		return xerrors.Errorf("stream: read out of bounds at %d (+%d > %d)", offset, len(dst), len(s.buf))
	}
	copy(dst, s.buf[offset:offset+len(dst)])
	return nil
}

// WriteBytes writes b at the cursor, advancing it, without any byte-order
// swap. The buffer grows as needed.
func (s *Stream) WriteBytes(b []byte) {
	s.WriteAt(b, s.pos)
	s.pos += len(b)
}

// WriteAt writes b at offset without touching the cursor and without any
// byte-order swap, extending the buffer as needed.
func (s *Stream) WriteAt(b []byte, offset int) {
	s.grow(offset + len(b))
	copy(s.buf[offset:offset+len(b)], b)
}

func (s *Stream) readScalar(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := s.ReadAt(buf, s.pos); err != nil {
		return nil, err
	}
	s.pos += n
	return buf, nil
}

func (s *Stream) writeScalar(buf []byte) {
	s.WriteAt(buf, s.pos)
	s.pos += len(buf)
}

// ReadU8 reads an unsigned byte. Width is the same regardless of Order.
func (s *Stream) ReadU8() (uint8, error) {
	b, err := s.readScalar(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads a signed byte.
func (s *Stream) ReadI8() (int8, error) {
	v, err := s.ReadU8()
	return int8(v), err
}

// ReadU16 reads a 16-bit unsigned integer in the stream's Order.
func (s *Stream) ReadU16() (uint16, error) {
	b, err := s.readScalar(2)
	if err != nil {
		return 0, err
	}
	return s.order.byteOrder().Uint16(b), nil
}

// ReadI16 reads a 16-bit signed integer in the stream's Order.
func (s *Stream) ReadI16() (int16, error) {
	v, err := s.ReadU16()
	return int16(v), err
}

// ReadU32 reads a 32-bit unsigned integer in the stream's Order.
func (s *Stream) ReadU32() (uint32, error) {
	b, err := s.readScalar(4)
	if err != nil {
		return 0, err
	}
	return s.order.byteOrder().Uint32(b), nil
}

// ReadI32 reads a 32-bit signed integer in the stream's Order.
func (s *Stream) ReadI32() (int32, error) {
	v, err := s.ReadU32()
	return int32(v), err
}

// ReadU64 reads a 64-bit unsigned integer in the stream's Order.
func (s *Stream) ReadU64() (uint64, error) {
	b, err := s.readScalar(8)
	if err != nil {
		return 0, err
	}
	return s.order.byteOrder().Uint64(b), nil
}

// ReadI64 reads a 64-bit signed integer in the stream's Order.
func (s *Stream) ReadI64() (int64, error) {
	v, err := s.ReadU64()
	return int64(v), err
}

// ReadF32 reads an IEEE-754 single-precision float in the stream's Order.
func (s *Stream) ReadF32() (float32, error) {
	v, err := s.ReadU32()
	return math.Float32frombits(v), err
}

// ReadF64 reads an IEEE-754 double-precision float in the stream's Order.
func (s *Stream) ReadF64() (float64, error) {
	v, err := s.ReadU64()
	return math.Float64frombits(v), err
}

// WriteU8 writes an unsigned byte.
func (s *Stream) WriteU8(v uint8) { s.writeScalar([]byte{v}) }

// WriteI8 writes a signed byte.
func (s *Stream) WriteI8(v int8) { s.WriteU8(uint8(v)) }

// WriteU16 writes a 16-bit unsigned integer in the stream's Order.
func (s *Stream) WriteU16(v uint16) {
	b := make([]byte, 2)
	s.order.byteOrder().PutUint16(b, v)
	s.writeScalar(b)
}

// WriteI16 writes a 16-bit signed integer in the stream's Order.
func (s *Stream) WriteI16(v int16) { s.WriteU16(uint16(v)) }

// WriteU32 writes a 32-bit unsigned integer in the stream's Order.
func (s *Stream) WriteU32(v uint32) {
	b := make([]byte, 4)
	s.order.byteOrder().PutUint32(b, v)
	s.writeScalar(b)
}

// WriteI32 writes a 32-bit signed integer in the stream's Order.
func (s *Stream) WriteI32(v int32) { s.WriteU32(uint32(v)) }

// WriteU64 writes a 64-bit unsigned integer in the stream's Order.
func (s *Stream) WriteU64(v uint64) {
	b := make([]byte, 8)
	s.order.byteOrder().PutUint64(b, v)
	s.writeScalar(b)
}

// WriteI64 writes a 64-bit signed integer in the stream's Order.
func (s *Stream) WriteI64(v int64) { s.WriteU64(uint64(v)) }

// WriteF32 writes an IEEE-754 single-precision float in the stream's Order.
func (s *Stream) WriteF32(v float32) { s.WriteU32(math.Float32bits(v)) }

// WriteF64 writes an IEEE-754 double-precision float in the stream's Order.
func (s *Stream) WriteF64(v float64) { s.WriteU64(math.Float64bits(v)) }

// ReadCString reads bytes at the cursor until (and past) a NUL terminator,
// returning the string without the terminator. Used for reading the @UTF
// string pool; callers typically Seek to a pool-relative offset first.
func (s *Stream) ReadCString() (string, error) {
	start := s.pos
	for {
		if s.pos >= len(s.buf) {
			return "", xerrors.Errorf("stream: unterminated string at %d", start)
		}
		if s.buf[s.pos] == 0 {
			str := string(s.buf[start:s.pos])
			s.pos++
			return str, nil
		}
		s.pos++
	}
}

// ReadCStringAt reads a NUL-terminated string at offset without moving the
// cursor.
func (s *Stream) ReadCStringAt(offset int) (string, error) {
	save := s.pos
	s.pos = offset
	str, err := s.ReadCString()
	s.pos = save
	return str, err
}
