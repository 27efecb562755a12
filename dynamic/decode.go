package dynamic

import (
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// Deserializer returns a decoder for messages of type desc, for use with wire.Unmarshal,
// wire.ReadEmbedded and the delimited stream readers.
func Deserializer(desc *schema.Message, res Resolver) wire.Deserializer[*Message] {
	return func(r *wire.Reader) (*Message, error) {
		m := New(desc, res)
		if err := m.merge(r); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Unmarshal decodes data as a message of type desc
func Unmarshal(data []byte, desc *schema.Message, res Resolver) (*Message, error) {
	return wire.Unmarshal(data, Deserializer(desc, res))
}

// Merge decodes data into m. Singular scalars are replaced, repeated and map fields are
// appended to, and embedded messages are merged recursively. If data fails to decode,
// m is left unchanged.
func (m *Message) Merge(data []byte) error {
	staged := m.Copy()
	if err := staged.merge(wire.NewReader(data)); err != nil {
		return err
	}
	m.values = staged.values
	m.unknown = staged.unknown
	m.size.Reset()
	return nil
}

// merge is the decode loop. Fields the schema does not declare, and declared fields
// arriving with an incompatible wire type, are kept as unknown fields. On error m may
// hold part of the input.
func (m *Message) merge(r *wire.Reader) error {
	unknown := m.unknown.ToBuilder()
	keys := mapKeys{}
	err := wire.ReadFields(r, unknown, func(r *wire.Reader, tag wire.Tag) (bool, error) {
		f := m.desc.FieldByNumber(int32(tag.FieldNumber()))
		if f == nil || !accepts(f, tag.WireType()) {
			return false, nil
		}
		if err := m.readField(r, f, tag, keys); err != nil {
			return true, wire.WrapField(err, f.Name)
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	m.unknown = wire.UnknownFieldSetFrom(unknown)
	m.size.Reset()
	return nil
}

// accepts reports whether wt is a valid encoding of field f. Repeated scalars are
// accepted both packed and unpacked.
func accepts(f *schema.Field, wt wire.WireType) bool {
	if f.Type.Kind == schema.KindMap {
		return wt == wire.WireBytes
	}
	elem := f.Type.WireType()
	if f.IsRepeated() && wire.IsPacked(wire.MakeTag(wire.FieldNumber(f.Number), wt), elem) {
		return true
	}
	return wt == elem
}

func (m *Message) readField(r *wire.Reader, f *schema.Field, tag wire.Tag, keys mapKeys) error {
	switch {
	case f.Type.Kind == schema.KindMap:
		return m.readMapEntry(r, f, keys)
	case f.IsRepeated():
		list, _ := m.values[f.Number].([]any)
		list, err := wire.AppendRepeated(r, tag, f.Type.WireType(), list, func(r *wire.Reader) (any, error) {
			return m.readValue(r, &f.Type)
		})
		if err != nil {
			return err
		}
		m.store(f, list)
		return nil
	case f.Type.Kind == schema.KindMessage:
		// a second occurrence of a singular message merges into the first
		if existing, ok := m.values[f.Number].(*Message); ok {
			if err := r.ReadMessage(existing.merge); err != nil {
				return err
			}
			m.size.Reset()
			return nil
		}
	}
	v, err := m.readValue(r, &f.Type)
	if err != nil {
		return err
	}
	m.store(f, v)
	return nil
}

func (m *Message) readValue(r *wire.Reader, ft *schema.FieldType) (any, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return readScalar(r, ft.PrimitiveType)
	case schema.KindEnum:
		n, err := r.ReadEnum()
		if err != nil {
			return nil, err
		}
		return m.enumValue(ft.EnumType, n)
	case schema.KindWrapper:
		return readWrapper(r, ft.WrapperType)
	case schema.KindMessage:
		desc, err := m.messageType(ft.MessageType)
		if err != nil {
			return nil, err
		}
		child, err := wire.ReadEmbedded(r, Deserializer(desc, m.res))
		if err != nil {
			return nil, err
		}
		return child, nil
	}
	return nil, fmt.Errorf("%w: unsupported field kind %s", ErrTypeMismatch, ft.Kind)
}

// mapKeys tracks the position of every key of the map fields decoded by one merge
type mapKeys map[int32]map[any]int

// index returns the key positions of field n, building them from entries on first use
func (k mapKeys) index(n int32, entries []MapEntry) map[any]int {
	idx, ok := k[n]
	if !ok {
		idx = make(map[any]int, len(entries))
		for i, e := range entries {
			idx[e.Key] = i
		}
		k[n] = idx
	}
	return idx
}

// readMapEntry decodes one entry. A repeated key replaces the value of the earlier
// entry and keeps its position.
func (m *Message) readMapEntry(r *wire.Reader, f *schema.Field, keys mapKeys) error {
	kt, vt := f.Type.MapKey, f.Type.MapValue
	key, value, err := wire.ReadMapEntry(r,
		kt.WireType(), func(r *wire.Reader) (any, error) { return m.readValue(r, kt) },
		vt.WireType(), func(r *wire.Reader) (any, error) { return m.readValue(r, vt) })
	if err != nil {
		return err
	}
	if key == nil {
		if key, err = m.zeroValue(kt); err != nil {
			return err
		}
	}
	if value == nil {
		if value, err = m.zeroValue(vt); err != nil {
			return err
		}
	}

	m.size.Reset()
	entries, _ := m.values[f.Number].([]MapEntry)
	idx := keys.index(f.Number, entries)
	if i, ok := idx[key]; ok {
		entries[i].Value = value
		return nil
	}
	idx[key] = len(entries)
	m.values[f.Number] = append(entries, MapEntry{Key: key, Value: value})
	return nil
}

// readWrapper decodes a google.protobuf wrapper message to its scalar. An empty
// wrapper holds the zero value.
func readWrapper(r *wire.Reader, t schema.WrapperType) (any, error) {
	vt := t.ValueType()
	v := zeroScalar(vt)
	err := r.ReadMessage(func(r *wire.Reader) error {
		return wire.ReadFields(r, nil, func(r *wire.Reader, tag wire.Tag) (bool, error) {
			if tag.FieldNumber() != 1 || tag.WireType() != vt.WireType() {
				return false, nil
			}
			var err error
			v, err = readScalar(r, vt)
			return true, err
		})
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func readScalar(r *wire.Reader, t schema.PrimitiveType) (any, error) {
	var (
		v   any
		err error
	)
	switch t {
	case schema.TypeInt32:
		v, err = r.ReadInt32()
	case schema.TypeInt64:
		v, err = r.ReadInt64()
	case schema.TypeUint32:
		v, err = r.ReadUint32()
	case schema.TypeUint64:
		v, err = r.ReadUint64()
	case schema.TypeSint32:
		v, err = r.ReadSint32()
	case schema.TypeSint64:
		v, err = r.ReadSint64()
	case schema.TypeBool:
		v, err = r.ReadBool()
	case schema.TypeFixed32:
		v, err = r.ReadFixed32()
	case schema.TypeFixed64:
		v, err = r.ReadFixed64()
	case schema.TypeSfixed32:
		v, err = r.ReadSfixed32()
	case schema.TypeSfixed64:
		v, err = r.ReadSfixed64()
	case schema.TypeFloat:
		v, err = r.ReadFloat()
	case schema.TypeDouble:
		v, err = r.ReadDouble()
	case schema.TypeString:
		v, err = r.ReadString()
	case schema.TypeBytes:
		v, err = r.ReadBytes()
	default:
		return nil, fmt.Errorf("%w: unknown scalar type %q", ErrTypeMismatch, t)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
