// Package dynamic implements messages driven by a schema descriptor instead of
// generated code. A Message satisfies wire.Message, so it can be marshaled, embedded
// and streamed exactly like a generated type.
package dynamic

import (
	"errors"
	"fmt"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrNoResolver   = errors.New("no resolver for referenced type")
)

// Resolver looks up the definitions that message and enum fields refer to.
// *registry.Registry implements it.
type Resolver interface {
	GetMessage(name string) (*schema.Message, error)
	GetEnum(name string) (*schema.Enum, error)
}

// EnumValue is the value of an enum field. Name is empty when the number is not
// declared by the enum; such values still round-trip.
type EnumValue struct {
	Number int32
	Name   string
}

// Value implements wire.Enum
func (e EnumValue) Value() int32 { return e.Number }

func (e EnumValue) String() string {
	if e.Name == "" {
		return fmt.Sprintf("%d", e.Number)
	}
	return e.Name
}

// MapEntry is one key/value pair of a map field
type MapEntry struct {
	Key   any
	Value any
}

// Message holds field values keyed by field number.
//
// Values use these Go types:
//
//	int32, sint32, sfixed32    int32
//	int64, sint64, sfixed64    int64
//	uint32, fixed32            uint32
//	uint64, fixed64            uint64
//	float, double              float32, float64
//	bool, string, bytes        bool, string, []byte
//	enum                       EnumValue
//	message                    *Message
//	wrapper                    the wrapped scalar
//	repeated                   []any
//	map                        []MapEntry, in wire order
//
// A Message may be encoded from several goroutines at once, but must not be mutated
// while it is being encoded.
type Message struct {
	desc    *schema.Message
	res     Resolver
	values  map[int32]any
	unknown wire.UnknownFieldSet
	size    wire.SizeCache
}

// New returns an empty message of type desc. res resolves the message and enum types
// its fields refer to and may be nil for messages with scalar fields only.
func New(desc *schema.Message, res Resolver) *Message {
	return &Message{
		desc:   desc,
		res:    res,
		values: make(map[int32]any),
	}
}

// Descriptor returns the message's schema
func (m *Message) Descriptor() *schema.Message { return m.desc }

// Unknown returns the fields that were decoded but are not declared by the schema
func (m *Message) Unknown() wire.UnknownFieldSet { return m.unknown }

// SetUnknown replaces the unknown field set
func (m *Message) SetUnknown(set wire.UnknownFieldSet) {
	m.unknown = set
	m.size.Reset()
}

// Has reports whether field n holds a value
func (m *Message) Has(n int32) bool {
	_, ok := m.values[n]
	return ok
}

// Get returns the value of field n, or its default when unset. Unset message and
// wrapper fields return nil.
func (m *Message) Get(n int32) any {
	if v, ok := m.values[n]; ok {
		return v
	}
	f := m.desc.FieldByNumber(n)
	if f == nil {
		return nil
	}
	switch {
	case f.Type.Kind == schema.KindMap:
		return []MapEntry(nil)
	case f.IsRepeated():
		return []any(nil)
	}
	v, err := m.defaultValue(f)
	if err != nil {
		return nil
	}
	return v
}

// GetByName is Get addressed by proto or JSON field name
func (m *Message) GetByName(name string) any {
	f := m.desc.FieldByName(name)
	if f == nil {
		return nil
	}
	return m.Get(f.Number)
}

// Set stores v in field n. The value must have the Go type listed on Message; enum
// fields also accept a bare int32. Setting nil clears the field, and setting a member
// of a oneof clears the other members.
func (m *Message) Set(n int32, v any) error {
	f := m.desc.FieldByNumber(n)
	if f == nil {
		return fmt.Errorf("%w: %d in %s", ErrUnknownField, n, m.desc.FullName)
	}
	if v == nil {
		m.Clear(n)
		return nil
	}
	v, err := m.check(f, v)
	if err != nil {
		return wire.WrapField(err, f.Name)
	}
	m.store(f, v)
	return nil
}

// SetByName is Set addressed by proto or JSON field name
func (m *Message) SetByName(name string, v any) error {
	f := m.desc.FieldByName(name)
	if f == nil {
		return fmt.Errorf("%w: %q in %s", ErrUnknownField, name, m.desc.FullName)
	}
	return m.Set(f.Number, v)
}

// Clear removes the value of field n
func (m *Message) Clear(n int32) {
	delete(m.values, n)
	m.size.Reset()
}

// Range calls fn for every set field in field number order until fn returns false
func (m *Message) Range(fn func(f *schema.Field, v any) bool) {
	for _, f := range m.desc.OrderedFields() {
		v, ok := m.values[f.Number]
		if !ok {
			continue
		}
		if !fn(f, v) {
			return
		}
	}
}

// Len returns the number of set fields
func (m *Message) Len() int { return len(m.values) }

// Copy returns a deep copy of the known fields. The unknown field set is immutable and
// is shared with the copy.
func (m *Message) Copy() *Message {
	out := New(m.desc, m.res)
	for n, v := range m.values {
		out.values[n] = copyValue(v)
	}
	out.unknown = m.unknown
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case *Message:
		return t.Copy()
	case []byte:
		return append([]byte(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []MapEntry:
		out := make([]MapEntry, len(t))
		for i, e := range t {
			out[i] = MapEntry{Key: e.Key, Value: copyValue(e.Value)}
		}
		return out
	default:
		return v
	}
}

// store sets a checked value. Implicit-presence fields holding their zero value are
// not stored, since they are indistinguishable from unset fields on the wire.
func (m *Message) store(f *schema.Field, v any) {
	m.size.Reset()
	if !f.HasPresence(m.desc.Syntax) && isEmpty(v) {
		delete(m.values, f.Number)
		return
	}
	if f.OneofIndex >= 0 && int(f.OneofIndex) < len(m.desc.OneofGroups) {
		for _, sibling := range m.desc.OneofGroups[f.OneofIndex].Fields {
			delete(m.values, sibling.Number)
		}
	}
	m.values[f.Number] = v
}

func (m *Message) messageType(name string) (*schema.Message, error) {
	if m.res == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResolver, name)
	}
	return m.res.GetMessage(name)
}

func (m *Message) enumType(name string) (*schema.Enum, error) {
	if m.res == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResolver, name)
	}
	return m.res.GetEnum(name)
}

// enumValue names number n of enum typeName. Undeclared numbers are not an error.
func (m *Message) enumValue(typeName string, n int32) (EnumValue, error) {
	enum, err := m.enumType(typeName)
	if err != nil {
		return EnumValue{}, err
	}
	if v, ok := enum.ValueByNumber(n); ok {
		return EnumValue{Number: n, Name: v.Name}, nil
	}
	return EnumValue{Number: n}, nil
}

// check verifies v has the Go type field f stores and normalizes enum numbers
func (m *Message) check(f *schema.Field, v any) (any, error) {
	switch {
	case f.Type.Kind == schema.KindMap:
		entries, ok := v.([]MapEntry)
		if !ok {
			return nil, mismatch("[]MapEntry", v)
		}
		out := make([]MapEntry, len(entries))
		for i, e := range entries {
			key, err := m.checkValue(f.Type.MapKey, e.Key)
			if err != nil {
				return nil, wire.WrapField(err, "key")
			}
			value, err := m.checkValue(f.Type.MapValue, e.Value)
			if err != nil {
				return nil, wire.WrapField(err, "value")
			}
			out[i] = MapEntry{Key: key, Value: value}
		}
		return out, nil
	case f.IsRepeated():
		list, ok := v.([]any)
		if !ok {
			return nil, mismatch("[]any", v)
		}
		out := make([]any, len(list))
		for i, e := range list {
			ev, err := m.checkValue(&f.Type, e)
			if err != nil {
				return nil, wire.WrapField(err, fmt.Sprint(i))
			}
			out[i] = ev
		}
		return out, nil
	}
	return m.checkValue(&f.Type, v)
}

func (m *Message) checkValue(ft *schema.FieldType, v any) (any, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return checkScalar(ft.PrimitiveType, v)
	case schema.KindWrapper:
		return checkScalar(ft.WrapperType.ValueType(), v)
	case schema.KindEnum:
		switch t := v.(type) {
		case EnumValue:
			return t, nil
		case int32:
			return m.enumValue(ft.EnumType, t)
		}
		return nil, mismatch("EnumValue", v)
	case schema.KindMessage:
		child, ok := v.(*Message)
		if !ok || child == nil {
			return nil, mismatch("*Message", v)
		}
		if child.desc.FullName != ft.MessageType {
			return nil, fmt.Errorf("%w: want message %s, got %s", ErrTypeMismatch, ft.MessageType, child.desc.FullName)
		}
		return child, nil
	}
	return nil, fmt.Errorf("%w: unsupported field kind %s", ErrTypeMismatch, ft.Kind)
}

func checkScalar(t schema.PrimitiveType, v any) (any, error) {
	ok := false
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		_, ok = v.(int32)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		_, ok = v.(int64)
	case schema.TypeUint32, schema.TypeFixed32:
		_, ok = v.(uint32)
	case schema.TypeUint64, schema.TypeFixed64:
		_, ok = v.(uint64)
	case schema.TypeFloat:
		_, ok = v.(float32)
	case schema.TypeDouble:
		_, ok = v.(float64)
	case schema.TypeBool:
		_, ok = v.(bool)
	case schema.TypeString:
		_, ok = v.(string)
	case schema.TypeBytes:
		_, ok = v.([]byte)
	}
	if !ok {
		return nil, mismatch(string(t), v)
	}
	return v, nil
}

func mismatch(want string, got any) error {
	return fmt.Errorf("%w: want %s, got %T", ErrTypeMismatch, want, got)
}
