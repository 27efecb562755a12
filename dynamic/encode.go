package dynamic

import (
	"math"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// Size computes the encoded size of m and refreshes the cached sizes of every nested
// message, which Serialize then relies on.
func (m *Message) Size() int {
	n := m.computeSize()
	m.size.Reset()
	return m.size.Get(func() int { return n })
}

func (m *Message) cachedSize() int {
	return m.size.Get(m.computeSize)
}

func (m *Message) computeSize() int {
	size := 0
	m.Range(func(f *schema.Field, v any) bool {
		size += m.fieldSize(f, v, false)
		return true
	})
	return size + m.unknown.Size()
}

// Serialize writes known fields in field number order followed by the unknown fields.
func (m *Message) Serialize(w *wire.Writer) {
	m.Range(func(f *schema.Field, v any) bool {
		m.writeField(w, f, v)
		return true
	})
	w.WriteUnknownFields(m.unknown)
}

// fieldSize returns the size of field f holding v, tags included. cached selects the
// memoized sizes of nested messages instead of recomputing them.
func (m *Message) fieldSize(f *schema.Field, v any, cached bool) int {
	n := wire.FieldNumber(f.Number)
	switch {
	case f.Type.Kind == schema.KindMap:
		size := 0
		for _, e := range v.([]MapEntry) {
			key, value := entrySizes(f, e, cached)
			size += wire.SizeMapEntry(n, key, value)
		}
		return size
	case f.IsPacked(m.desc.Syntax):
		return wire.SizeFieldPacked(n, packedPayload(&f.Type, v.([]any)))
	case f.IsRepeated():
		size := 0
		for _, e := range v.([]any) {
			size += wire.SizeTag(n) + valueSize(&f.Type, e, cached)
		}
		return size
	}
	return wire.SizeTag(n) + valueSize(&f.Type, v, cached)
}

func entrySizes(f *schema.Field, e MapEntry, cached bool) (int, int) {
	return wire.SizeTag(1) + valueSize(f.Type.MapKey, e.Key, cached),
		wire.SizeTag(2) + valueSize(f.Type.MapValue, e.Value, cached)
}

func packedPayload(ft *schema.FieldType, list []any) int {
	payload := 0
	for _, e := range list {
		payload += valueSize(ft, e, true)
	}
	return payload
}

// valueSize returns the size of one value without its tag
func valueSize(ft *schema.FieldType, v any, cached bool) int {
	switch ft.Kind {
	case schema.KindPrimitive:
		return scalarSize(ft.PrimitiveType, v)
	case schema.KindEnum:
		return wire.SizeEnum(v.(EnumValue).Number)
	case schema.KindWrapper:
		return wire.SizeLengthDelimited(wrapperPayload(ft.WrapperType, v))
	case schema.KindMessage:
		child := v.(*Message)
		if cached {
			return wire.SizeLengthDelimited(child.cachedSize())
		}
		return wire.SizeLengthDelimited(child.Size())
	}
	return 0
}

// wrapperPayload is the size of a wrapper message body. A zero value is left out, as
// the wrapper's value field has implicit presence.
func wrapperPayload(t schema.WrapperType, v any) int {
	if isEmpty(v) {
		return 0
	}
	return wire.SizeTag(1) + scalarSize(t.ValueType(), v)
}

func scalarSize(t schema.PrimitiveType, v any) int {
	switch t {
	case schema.TypeInt32:
		return wire.SizeInt32(v.(int32))
	case schema.TypeInt64:
		return wire.SizeInt64(v.(int64))
	case schema.TypeUint32:
		return wire.SizeUint32(v.(uint32))
	case schema.TypeUint64:
		return wire.SizeUint64(v.(uint64))
	case schema.TypeSint32:
		return wire.SizeSint32(v.(int32))
	case schema.TypeSint64:
		return wire.SizeSint64(v.(int64))
	case schema.TypeBool:
		return wire.SizeBool(v.(bool))
	case schema.TypeFixed32, schema.TypeSfixed32, schema.TypeFloat:
		return wire.SizeFixed32()
	case schema.TypeFixed64, schema.TypeSfixed64, schema.TypeDouble:
		return wire.SizeFixed64()
	case schema.TypeString:
		return wire.SizeString(v.(string))
	case schema.TypeBytes:
		return wire.SizeBytes(v.([]byte))
	}
	return 0
}

func (m *Message) writeField(w *wire.Writer, f *schema.Field, v any) {
	n := wire.FieldNumber(f.Number)
	switch {
	case f.Type.Kind == schema.KindMap:
		for _, e := range v.([]MapEntry) {
			ks, vs := entrySizes(f, e, true)
			w.WriteMapEntry(n, ks, vs,
				func(w *wire.Writer) {
					w.WriteTag(1, f.Type.MapKey.WireType())
					writeValue(w, f.Type.MapKey, e.Key)
				},
				func(w *wire.Writer) {
					w.WriteTag(2, f.Type.MapValue.WireType())
					writeValue(w, f.Type.MapValue, e.Value)
				})
		}
	case f.IsPacked(m.desc.Syntax):
		list := v.([]any)
		payload := packedPayload(&f.Type, list)
		if payload == 0 {
			return
		}
		w.WriteTag(n, wire.WireBytes)
		w.WriteVarint(uint64(payload))
		for _, e := range list {
			writeValue(w, &f.Type, e)
		}
	case f.IsRepeated():
		wt := f.Type.WireType()
		for _, e := range v.([]any) {
			w.WriteTag(n, wt)
			writeValue(w, &f.Type, e)
		}
	default:
		w.WriteTag(n, f.Type.WireType())
		writeValue(w, &f.Type, v)
	}
}

func writeValue(w *wire.Writer, ft *schema.FieldType, v any) {
	switch ft.Kind {
	case schema.KindPrimitive:
		writeScalar(w, ft.PrimitiveType, v)
	case schema.KindEnum:
		w.WriteEnum(v.(EnumValue).Number)
	case schema.KindWrapper:
		payload := wrapperPayload(ft.WrapperType, v)
		w.WriteVarint(uint64(payload))
		if payload > 0 {
			vt := ft.WrapperType.ValueType()
			w.WriteTag(1, vt.WireType())
			writeScalar(w, vt, v)
		}
	case schema.KindMessage:
		writeEmbedded(w, v.(*Message))
	}
}

// writeEmbedded writes child behind the length prefix computed by the last Size call
func writeEmbedded(w *wire.Writer, child *Message) {
	size := child.cachedSize()
	w.WriteVarint(uint64(size))
	start := w.Offset()
	child.Serialize(w)
	if written := w.Offset() - start; written != size {
		panic(&wire.SizeMismatchError{Declared: size, Written: written})
	}
}

func writeScalar(w *wire.Writer, t schema.PrimitiveType, v any) {
	switch t {
	case schema.TypeInt32:
		w.WriteInt32(v.(int32))
	case schema.TypeInt64:
		w.WriteInt64(v.(int64))
	case schema.TypeUint32:
		w.WriteUint32(v.(uint32))
	case schema.TypeUint64:
		w.WriteUint64(v.(uint64))
	case schema.TypeSint32:
		w.WriteSint32(v.(int32))
	case schema.TypeSint64:
		w.WriteSint64(v.(int64))
	case schema.TypeBool:
		w.WriteBool(v.(bool))
	case schema.TypeFixed32:
		w.WriteFixed32(v.(uint32))
	case schema.TypeFixed64:
		w.WriteFixed64(v.(uint64))
	case schema.TypeSfixed32:
		w.WriteSfixed32(v.(int32))
	case schema.TypeSfixed64:
		w.WriteSfixed64(v.(int64))
	case schema.TypeFloat:
		w.WriteFloat(v.(float32))
	case schema.TypeDouble:
		w.WriteDouble(v.(float64))
	case schema.TypeString:
		w.WriteString(v.(string))
	case schema.TypeBytes:
		w.WriteBytes(v.([]byte))
	}
}

// isEmpty reports whether v is a zero scalar or an empty list. Negative zero floats
// are not empty.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case int32:
		return t == 0
	case int64:
		return t == 0
	case uint32:
		return t == 0
	case uint64:
		return t == 0
	case float32:
		return math.Float32bits(t) == 0
	case float64:
		return math.Float64bits(t) == 0
	case bool:
		return !t
	case string:
		return t == ""
	case []byte:
		return len(t) == 0
	case EnumValue:
		return t.Number == 0
	case []any:
		return len(t) == 0
	case []MapEntry:
		return len(t) == 0
	}
	return false
}
