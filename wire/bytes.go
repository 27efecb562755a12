package wire

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// BytesSlice is a view over a byte range of a larger buffer. Decoding bytes fields as
// slices avoids a copy, at the price of aliasing the input: the source buffer must not
// be mutated while a decoded message still references it.
type BytesSlice struct {
	buf    []byte
	offset int
	length int
}

// NewBytesSlice creates a view of length bytes of buf starting at offset
func NewBytesSlice(buf []byte, offset, length int) BytesSlice {
	if offset < 0 || length < 0 || offset+length > len(buf) {
		panic(fmt.Sprintf("wire: bytes slice [%d:%d] out of range for buffer of %d", offset, offset+length, len(buf)))
	}
	return BytesSlice{buf: buf, offset: offset, length: length}
}

// BytesSliceOf wraps all of b
func BytesSliceOf(b []byte) BytesSlice {
	return BytesSlice{buf: b, length: len(b)}
}

// Bytes returns the viewed bytes. The result is capacity-limited so appending to it
// never writes into the shared buffer.
func (s BytesSlice) Bytes() []byte {
	end := s.offset + s.length
	return s.buf[s.offset:end:end]
}

func (s BytesSlice) Len() int    { return s.length }
func (s BytesSlice) Offset() int { return s.offset }

// Equal compares content only; offsets and backing buffers are irrelevant.
func (s BytesSlice) Equal(o BytesSlice) bool {
	return bytes.Equal(s.Bytes(), o.Bytes())
}

// Hash is consistent with Equal
func (s BytesSlice) Hash() uint64 {
	return xxhash.Sum64(s.Bytes())
}

// Copy returns a slice backed by a private copy of the content
func (s BytesSlice) Copy() BytesSlice {
	return BytesSliceOf(bytes.Clone(s.Bytes()))
}

func (s BytesSlice) String() string {
	return fmt.Sprintf("%q", s.Bytes())
}
