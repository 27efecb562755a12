package wire

import (
	"fmt"
)

// Reader decodes a protobuf payload sequentially. Reads never go past the current
// limit, which starts at the end of the input and is narrowed while an embedded
// message or packed field is being read. A Reader is single-use: once a decode fails
// or is abandoned it cannot be resumed.
type Reader struct {
	buf   []byte
	pos   int
	limit int
	depth int
	cfg   Config
}

// NewReader creates a reader over data using DefaultConfig
func NewReader(data []byte) *Reader {
	return NewReaderWithConfig(data, DefaultConfig())
}

// NewReaderWithConfig creates a reader over data with explicit options
func NewReaderWithConfig(data []byte, cfg Config) *Reader {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Reader{
		buf:   data,
		limit: len(data),
		cfg:   cfg,
	}
}

// Pos returns the current read offset into the input
func (r *Reader) Pos() int { return r.pos }

// Limit returns the end of the current read window
func (r *Reader) Limit() int { return r.limit }

// AtLimit reports whether the current window is fully consumed
func (r *Reader) AtLimit() bool { return r.pos >= r.limit }

// Config returns the options the reader was created with
func (r *Reader) Config() Config { return r.cfg }

func (r *Reader) window() []byte {
	return r.buf[r.pos:r.limit]
}

// TAG

// ReadTag returns the next field tag, or 0 when the current window is exhausted. No
// bytes are consumed in the latter case.
func (r *Reader) ReadTag() (Tag, error) {
	if r.pos == r.limit {
		return 0, nil
	}
	v, err := r.ReadVarint()
	if err != nil {
		return 0, fmt.Errorf("read tag: %w", err)
	}
	if v>>3 == 0 || v>>3 > uint64(MaxFieldNumber) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFieldNumber, v>>3)
	}
	tag := Tag(v)
	switch tag.WireType() {
	case WireVarint, WireFixed64, WireBytes, WireFixed32:
		return tag, nil
	case WireStartGroup, WireEndGroup:
		return 0, fmt.Errorf("%w: %s on field %d (groups are not supported)", ErrUnsupportedWireType, tag.WireType(), tag.FieldNumber())
	default:
		return 0, fmt.Errorf("%w: %d on field %d", ErrInvalidWireType, int8(tag.WireType()), tag.FieldNumber())
	}
}

// VARINT METHODS

// ReadVarint decodes a raw varint of up to ten bytes
func (r *Reader) ReadVarint() (uint64, error) {
	v, n, err := ConsumeVarint(r.window())
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

// ReadInt32 keeps the low 32 bits of the varint. Oversized encodings are truncated,
// not rejected.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadVarint()
	return int32(v), err
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadVarint()
	return int64(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadVarint()
	return uint32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	return r.ReadVarint()
}

func (r *Reader) ReadSint32() (int32, error) {
	v, err := r.ReadVarint()
	return DecodeZigZag32(v), err
}

func (r *Reader) ReadSint64() (int64, error) {
	v, err := r.ReadVarint()
	return DecodeZigZag64(v), err
}

// ReadBool treats any non-zero varint as true.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadVarint()
	return DecodeBool(v), err
}

// ReadEnum returns the raw enum number. Mapping it to a typed enum is the job of the
// enum's total EnumFrom function, so unknown numbers never fail here.
func (r *Reader) ReadEnum() (int32, error) {
	return r.ReadInt32()
}

// FIXED METHODS

func (r *Reader) ReadFixed32() (uint32, error) {
	v, n, err := ConsumeFixed32(r.window())
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *Reader) ReadFixed64() (uint64, error) {
	v, n, err := ConsumeFixed64(r.window())
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

func (r *Reader) ReadSfixed32() (int32, error) {
	v, err := r.ReadFixed32()
	return int32(v), err
}

func (r *Reader) ReadSfixed64() (int64, error) {
	v, err := r.ReadFixed64()
	return int64(v), err
}

func (r *Reader) ReadFloat() (float32, error) {
	v, err := r.ReadFixed32()
	return FixedToFloat32(v), err
}

func (r *Reader) ReadDouble() (float64, error) {
	v, err := r.ReadFixed64()
	return FixedToFloat64(v), err
}

// LENGTH-DELIMITED METHODS

// ReadLength decodes a length prefix and checks it fits in the current window
func (r *Reader) ReadLength() (int, error) {
	v, err := r.ReadVarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(r.limit-r.pos) {
		return 0, fmt.Errorf("%w: length %d, %d bytes left", ErrTruncated, v, r.limit-r.pos)
	}
	return int(v), nil
}

// ReadBytesSlice reads a length-delimited payload as a view of the input (or a private
// copy when Config.CopyBytes is set).
func (r *Reader) ReadBytesSlice() (BytesSlice, error) {
	n, err := r.ReadLength()
	if err != nil {
		return BytesSlice{}, err
	}
	s := NewBytesSlice(r.buf, r.pos, n)
	r.pos += n
	if r.cfg.CopyBytes {
		s = s.Copy()
	}
	return s, nil
}

// ReadBytes reads a length-delimited payload
func (r *Reader) ReadBytes() ([]byte, error) {
	s, err := r.ReadBytesSlice()
	if err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// ReadString reads a length-delimited payload as a string. UTF-8 validity is not
// checked, so malformed strings round-trip unchanged.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadLength()
	if err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

// ReadMessage reads an embedded message. The window is narrowed to the declared length
// while fn runs, and fn must consume exactly that many bytes.
func (r *Reader) ReadMessage(fn func(*Reader) error) error {
	n, err := r.ReadLength()
	if err != nil {
		return err
	}
	if r.depth >= r.cfg.MaxDepth {
		return fmt.Errorf("%w: limit %d", ErrDepthExceeded, r.cfg.MaxDepth)
	}
	return r.within(n, func() error {
		r.depth++
		defer func() { r.depth-- }()
		return fn(r)
	})
}

// within runs fn with the window set to the next n bytes and verifies fn consumed all
// of them before restoring the enclosing window.
func (r *Reader) within(n int, fn func() error) error {
	saved := r.limit
	start := r.pos
	r.limit = r.pos + n
	if err := fn(); err != nil {
		r.limit = saved
		return err
	}
	if r.pos != r.limit {
		consumed := r.pos - start
		r.limit = saved
		return fmt.Errorf("%w: declared %d bytes, consumed %d", ErrLengthMismatch, n, consumed)
	}
	r.limit = saved
	return nil
}

// ReadRepeated decodes one occurrence of a repeated field. Unpacked, body runs once for
// the single element that follows the tag. Packed, a length prefix is read and body
// runs until the packed payload is consumed.
func (r *Reader) ReadRepeated(packed bool, body func(*Reader) error) error {
	if !packed {
		return body(r)
	}
	n, err := r.ReadLength()
	if err != nil {
		return err
	}
	return r.within(n, func() error {
		for r.pos < r.limit {
			if err := body(r); err != nil {
				return err
			}
		}
		return nil
	})
}

// UNKNOWN FIELDS

// ReadUnknownField reads the value that follows tag in its raw wire shape and records it
// in b.
func (r *Reader) ReadUnknownField(tag Tag, b *UnknownFieldSetBuilder) error {
	fn := tag.FieldNumber()
	switch tag.WireType() {
	case WireVarint:
		v, err := r.ReadVarint()
		if err != nil {
			return err
		}
		b.Add(fn, VarintField(v))
	case WireFixed64:
		v, err := r.ReadFixed64()
		if err != nil {
			return err
		}
		b.Add(fn, Fixed64Field(v))
	case WireFixed32:
		v, err := r.ReadFixed32()
		if err != nil {
			return err
		}
		b.Add(fn, Fixed32Field(v))
	case WireBytes:
		v, err := r.ReadBytesSlice()
		if err != nil {
			return err
		}
		b.Add(fn, LengthDelimitedField(v))
	case WireStartGroup, WireEndGroup:
		return fmt.Errorf("%w: %s on field %d", ErrUnsupportedWireType, tag.WireType(), fn)
	default:
		return fmt.Errorf("%w: %d on field %d", ErrInvalidWireType, int8(tag.WireType()), fn)
	}
	return nil
}

// SkipField discards the value that follows tag
func (r *Reader) SkipField(tag Tag) error {
	switch tag.WireType() {
	case WireVarint:
		_, err := r.ReadVarint()
		return err
	case WireFixed64:
		_, err := r.ReadFixed64()
		return err
	case WireFixed32:
		_, err := r.ReadFixed32()
		return err
	case WireBytes:
		n, err := r.ReadLength()
		if err != nil {
			return err
		}
		r.pos += n
		return nil
	case WireStartGroup, WireEndGroup:
		return fmt.Errorf("%w: %s on field %d", ErrUnsupportedWireType, tag.WireType(), tag.FieldNumber())
	default:
		return fmt.Errorf("%w: %d on field %d", ErrInvalidWireType, int8(tag.WireType()), tag.FieldNumber())
	}
}

// GENERIC HELPERS

// ReadEmbedded reads an embedded message with a type's deserializer
func ReadEmbedded[T any](r *Reader, deserialize Deserializer[T]) (T, error) {
	var out T
	err := r.ReadMessage(func(r *Reader) error {
		var err error
		out, err = deserialize(r)
		return err
	})
	return out, err
}

// IsPacked reports whether a tag carries a packed encoding of elements whose natural
// wire type is elem.
func IsPacked(tag Tag, elem WireType) bool {
	return tag.WireType() == WireBytes && elem != WireBytes
}

// AppendRepeated decodes one occurrence of a repeated scalar field (packed or not) and
// appends the element(s) to dst.
func AppendRepeated[T any](r *Reader, tag Tag, elem WireType, dst []T, read func(*Reader) (T, error)) ([]T, error) {
	packed := IsPacked(tag, elem)
	if !packed && tag.WireType() != elem {
		return dst, fmt.Errorf("%w: %s for field %d, want %s", ErrInvalidWireType, tag.WireType(), tag.FieldNumber(), elem)
	}
	err := r.ReadRepeated(packed, func(r *Reader) error {
		v, err := read(r)
		if err != nil {
			return err
		}
		dst = append(dst, v)
		return nil
	})
	return dst, err
}

// ReadMapEntry decodes one map entry: key in field 1, value in field 2. A missing key or
// value decodes to its zero value; fields with other numbers or unexpected wire types
// are skipped.
func ReadMapEntry[K, V any](r *Reader, keyWire WireType, readKey func(*Reader) (K, error), valueWire WireType, readValue func(*Reader) (V, error)) (K, V, error) {
	var (
		key   K
		value V
	)
	err := r.ReadMessage(func(r *Reader) error {
		for {
			tag, err := r.ReadTag()
			if err != nil {
				return err
			}
			if tag == 0 {
				return nil
			}
			switch {
			case tag.FieldNumber() == 1 && tag.WireType() == keyWire:
				if key, err = readKey(r); err != nil {
					return WrapField(err, "key")
				}
			case tag.FieldNumber() == 2 && tag.WireType() == valueWire:
				if value, err = readValue(r); err != nil {
					return WrapField(err, "value")
				}
			default:
				if err := r.SkipField(tag); err != nil {
					return err
				}
			}
		}
	})
	return key, value, err
}
