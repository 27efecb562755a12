package wire

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// UnknownKind identifies the raw wire shape of an unknown field value
type UnknownKind uint8

const (
	UnknownVarint UnknownKind = iota
	UnknownFixed32
	UnknownFixed64
	UnknownLengthDelimited
)

func (k UnknownKind) String() string {
	switch k {
	case UnknownVarint:
		return "varint"
	case UnknownFixed32:
		return "fixed32"
	case UnknownFixed64:
		return "fixed64"
	case UnknownLengthDelimited:
		return "length-delimited"
	default:
		return fmt.Sprintf("UnknownKind(%d)", uint8(k))
	}
}

// WireType returns the wire type a value of this kind is encoded with
func (k UnknownKind) WireType() WireType {
	switch k {
	case UnknownFixed32:
		return WireFixed32
	case UnknownFixed64:
		return WireFixed64
	case UnknownLengthDelimited:
		return WireBytes
	default:
		return WireVarint
	}
}

// UnknownField is one raw value of a field the schema does not declare
type UnknownField struct {
	kind  UnknownKind
	num   uint64 // varint, fixed32 and fixed64 payloads
	bytes BytesSlice
}

func VarintField(v uint64) UnknownField  { return UnknownField{kind: UnknownVarint, num: v} }
func Fixed32Field(v uint32) UnknownField { return UnknownField{kind: UnknownFixed32, num: uint64(v)} }
func Fixed64Field(v uint64) UnknownField { return UnknownField{kind: UnknownFixed64, num: v} }

func LengthDelimitedField(b BytesSlice) UnknownField {
	return UnknownField{kind: UnknownLengthDelimited, bytes: b}
}

func (f UnknownField) Kind() UnknownKind { return f.kind }
func (f UnknownField) Varint() uint64    { return f.num }
func (f UnknownField) Fixed32() uint32   { return uint32(f.num) }
func (f UnknownField) Fixed64() uint64   { return f.num }
func (f UnknownField) Bytes() BytesSlice { return f.bytes }

// Size returns the encoded size of the value, without its tag
func (f UnknownField) Size() int {
	switch f.kind {
	case UnknownFixed32:
		return 4
	case UnknownFixed64:
		return 8
	case UnknownLengthDelimited:
		return SizeLengthDelimited(f.bytes.Len())
	default:
		return SizeVarint(f.num)
	}
}

// Equal compares kind and value; length-delimited values compare by content.
func (f UnknownField) Equal(o UnknownField) bool {
	if f.kind != o.kind {
		return false
	}
	if f.kind == UnknownLengthDelimited {
		return f.bytes.Equal(o.bytes)
	}
	return f.num == o.num
}

func (f UnknownField) String() string {
	if f.kind == UnknownLengthDelimited {
		return fmt.Sprintf("%s(%s)", f.kind, f.bytes)
	}
	return fmt.Sprintf("%s(%d)", f.kind, f.num)
}

func (f UnknownField) writeTo(w *Writer, n FieldNumber) {
	w.WriteTag(n, f.kind.WireType())
	switch f.kind {
	case UnknownFixed32:
		w.WriteFixed32(uint32(f.num))
	case UnknownFixed64:
		w.WriteFixed64(f.num)
	case UnknownLengthDelimited:
		w.WriteBytesSlice(f.bytes)
	default:
		w.WriteVarint(f.num)
	}
}

// ===== UNKNOWN FIELD SET =====

// UnknownFieldSet is an immutable mapping from field number to the raw values seen for
// it, in discovery order. The zero value is the empty set.
type UnknownFieldSet struct {
	numbers []FieldNumber // ascending
	fields  map[FieldNumber][]UnknownField
	size    int
}

// EmptyUnknownFieldSet returns the shared empty set. It allocates nothing.
func EmptyUnknownFieldSet() UnknownFieldSet {
	return UnknownFieldSet{}
}

// UnknownFieldSetFrom freezes b. A nil or empty builder yields the empty set.
func UnknownFieldSetFrom(b *UnknownFieldSetBuilder) UnknownFieldSet {
	if b == nil {
		return EmptyUnknownFieldSet()
	}
	return b.Build()
}

// IsEmpty reports whether the set holds no fields
func (s UnknownFieldSet) IsEmpty() bool { return len(s.numbers) == 0 }

// Len returns the number of distinct field numbers
func (s UnknownFieldSet) Len() int { return len(s.numbers) }

// FieldNumbers returns the recorded field numbers in ascending order
func (s UnknownFieldSet) FieldNumbers() []FieldNumber {
	return slices.Clone(s.numbers)
}

// Get returns the values recorded for n, in discovery order
func (s UnknownFieldSet) Get(n FieldNumber) []UnknownField {
	return slices.Clone(s.fields[n])
}

// Size returns the serialized size of every entry, tags included
func (s UnknownFieldSet) Size() int { return s.size }

// Range calls fn for each entry, by field number then discovery order, until fn
// returns false.
func (s UnknownFieldSet) Range(fn func(FieldNumber, UnknownField) bool) {
	for _, n := range s.numbers {
		for _, f := range s.fields[n] {
			if !fn(n, f) {
				return
			}
		}
	}
}

// Equal reports whether both sets map the same field numbers to the same value lists
func (s UnknownFieldSet) Equal(o UnknownFieldSet) bool {
	if len(s.numbers) != len(o.numbers) || s.size != o.size {
		return false
	}
	for i, n := range s.numbers {
		if o.numbers[i] != n {
			return false
		}
		a, b := s.fields[n], o.fields[n]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if !a[j].Equal(b[j]) {
				return false
			}
		}
	}
	return true
}

// Hash is consistent with Equal
func (s UnknownFieldSet) Hash() uint64 {
	if s.IsEmpty() {
		return 0
	}
	h := xxhash.New()
	var scratch [16]byte
	s.Range(func(n FieldNumber, f UnknownField) bool {
		b := binary.LittleEndian.AppendUint32(scratch[:0], uint32(n))
		b = append(b, byte(f.kind))
		if f.kind == UnknownLengthDelimited {
			b = binary.LittleEndian.AppendUint32(b, uint32(f.bytes.Len()))
			_, _ = h.Write(b)
			_, _ = h.Write(f.bytes.Bytes())
		} else {
			b = binary.LittleEndian.AppendUint64(b, f.num)
			_, _ = h.Write(b)
		}
		return true
	})
	return h.Sum64()
}

// ToBuilder returns a builder pre-filled with the set's entries
func (s UnknownFieldSet) ToBuilder() *UnknownFieldSetBuilder {
	b := &UnknownFieldSetBuilder{}
	s.Range(func(n FieldNumber, f UnknownField) bool {
		b.Add(n, f)
		return true
	})
	return b
}

func (s UnknownFieldSet) writeTo(w *Writer) {
	s.Range(func(n FieldNumber, f UnknownField) bool {
		f.writeTo(w, n)
		return true
	})
}

func (s UnknownFieldSet) String() string {
	out := "{"
	s.Range(func(n FieldNumber, f UnknownField) bool {
		if len(out) > 1 {
			out += " "
		}
		out += fmt.Sprintf("%d:%s", n, f)
		return true
	})
	return out + "}"
}

// UnknownFieldSetBuilder accumulates unknown fields during a decode
type UnknownFieldSetBuilder struct {
	fields map[FieldNumber][]UnknownField
}

// Add appends f to the list for field n
func (b *UnknownFieldSetBuilder) Add(n FieldNumber, f UnknownField) {
	if b.fields == nil {
		b.fields = make(map[FieldNumber][]UnknownField)
	}
	b.fields[n] = append(b.fields[n], f)
}

// Len returns the number of distinct field numbers recorded so far
func (b *UnknownFieldSetBuilder) Len() int {
	if b == nil {
		return 0
	}
	return len(b.fields)
}

// Build freezes the recorded fields. The builder is reset and can be reused.
func (b *UnknownFieldSetBuilder) Build() UnknownFieldSet {
	if len(b.fields) == 0 {
		return EmptyUnknownFieldSet()
	}
	s := UnknownFieldSet{
		numbers: make([]FieldNumber, 0, len(b.fields)),
		fields:  b.fields,
	}
	for n, values := range b.fields {
		s.numbers = append(s.numbers, n)
		for _, f := range values {
			s.size += SizeTag(n) + f.Size()
		}
	}
	slices.Sort(s.numbers)
	b.fields = nil
	return s
}
