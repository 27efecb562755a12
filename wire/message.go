package wire

import (
	"fmt"
	"sync/atomic"
)

// ===== MESSAGE AND ENUM CONTRACTS =====

// Message is implemented by every type the codec can encode. Size must return exactly
// the number of bytes Serialize writes; it is called once per encode of the message and
// once per enclosing length prefix, so implementations should memoize it (see SizeCache).
type Message interface {
	Size() int
	Serialize(w *Writer)
}

// Deserializer decodes one message from r, reading tags until ReadTag returns 0.
type Deserializer[T any] func(r *Reader) (T, error)

// Enum is implemented by protobuf enum types
type Enum interface {
	Value() int32
}

// EnumFrom maps a wire number to an enum value. It must be total: numbers the type does
// not know still produce a value that carries the number, so it can round-trip.
type EnumFrom[T Enum] func(value int32) T

// Marshal encodes m into a buffer of exactly m.Size() bytes
func Marshal(m Message) []byte {
	size := m.Size()
	buf := make([]byte, size)
	w := NewWriter(buf)
	m.Serialize(w)
	if w.Offset() != size {
		panic(&SizeMismatchError{Declared: size, Written: w.Offset()})
	}
	return buf
}

// Unmarshal decodes data with a message type's deserializer
func Unmarshal[T any](data []byte, deserialize Deserializer[T]) (T, error) {
	return UnmarshalWithConfig(data, DefaultConfig(), deserialize)
}

// UnmarshalWithConfig is Unmarshal with explicit reader options
func UnmarshalWithConfig[T any](data []byte, cfg Config, deserialize Deserializer[T]) (T, error) {
	r := NewReaderWithConfig(data, cfg)
	out, err := deserialize(r)
	if err != nil {
		var zero T
		return zero, err
	}
	if !r.AtLimit() {
		var zero T
		return zero, fmt.Errorf("%w: %d trailing bytes", ErrLengthMismatch, r.Limit()-r.Pos())
	}
	return out, nil
}

// ReadFields runs the standard decode loop: read tags until the window is exhausted,
// hand each one to field, and capture the ones field does not handle in unknown. With a
// nil builder unhandled fields are skipped instead.
func ReadFields(r *Reader, unknown *UnknownFieldSetBuilder, field func(r *Reader, tag Tag) (bool, error)) error {
	for {
		tag, err := r.ReadTag()
		if err != nil {
			return err
		}
		if tag == 0 {
			return nil
		}
		handled, err := field(r, tag)
		if err != nil {
			return err
		}
		if handled {
			continue
		}
		if unknown != nil {
			err = r.ReadUnknownField(tag, unknown)
		} else {
			err = r.SkipField(tag)
		}
		if err != nil {
			return err
		}
	}
}

// SizeCache memoizes a message size. The zero value is ready to use and safe for
// concurrent encoders of the same message.
type SizeCache struct {
	v atomic.Int64 // size+1, 0 means not computed
}

// Get returns the cached size, computing it on first use
func (c *SizeCache) Get(compute func() int) int {
	if v := c.v.Load(); v > 0 {
		return int(v - 1)
	}
	size := compute()
	c.v.Store(int64(size) + 1)
	return size
}

// Reset forgets the cached size. Call it after mutating the message.
func (c *SizeCache) Reset() {
	c.v.Store(0)
}
