package dynamic

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// ToMap returns the set fields keyed by proto field name. Enums become their names
// (or numbers when undeclared), nested messages become maps, repeated fields []any and
// map fields map[any]any.
func (m *Message) ToMap() map[string]any {
	out := make(map[string]any, len(m.values))
	m.Range(func(f *schema.Field, v any) bool {
		out[f.Name] = toPlain(v)
		return true
	})
	return out
}

func toPlain(v any) any {
	switch t := v.(type) {
	case *Message:
		return t.ToMap()
	case EnumValue:
		if t.Name == "" {
			return t.Number
		}
		return t.Name
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toPlain(e)
		}
		return out
	case []MapEntry:
		out := make(map[any]any, len(t))
		for _, e := range t {
			out[e.Key] = toPlain(e.Value)
		}
		return out
	}
	return v
}

// FromMap sets fields from a map keyed by proto or JSON field name, converting loosely
// typed values: any integer or integral float for integer fields, json.Number, numeric
// strings, enum names, nested maps for messages, Go slices and maps for repeated and
// map fields. Map entries from Go maps are sorted by key so encoding is deterministic.
func (m *Message) FromMap(data map[string]any) error {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := m.desc.FieldByName(name)
		if f == nil {
			return fmt.Errorf("%w: %q in %s", ErrUnknownField, name, m.desc.FullName)
		}
		raw := data[name]
		if raw == nil {
			m.Clear(f.Number)
			continue
		}
		v, err := m.coerceField(f, raw)
		if err != nil {
			return wire.WrapField(err, f.Name)
		}
		m.store(f, v)
	}
	return nil
}

func (m *Message) coerceField(f *schema.Field, raw any) (any, error) {
	switch {
	case f.Type.Kind == schema.KindMap:
		return m.coerceMap(f, raw)
	case f.IsRepeated():
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, mismatch("list", raw)
		}
		out := make([]any, rv.Len())
		for i := range out {
			v, err := m.coerce(&f.Type, rv.Index(i).Interface())
			if err != nil {
				return nil, wire.WrapField(err, strconv.Itoa(i))
			}
			out[i] = v
		}
		return out, nil
	}
	return m.coerce(&f.Type, raw)
}

func (m *Message) coerceMap(f *schema.Field, raw any) (any, error) {
	if entries, ok := raw.([]MapEntry); ok {
		return m.check(f, entries)
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map {
		return nil, mismatch("map", raw)
	}
	out := make([]MapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := m.coerce(f.Type.MapKey, iter.Key().Interface())
		if err != nil {
			return nil, wire.WrapField(err, "key")
		}
		value, err := m.coerce(f.Type.MapValue, iter.Value().Interface())
		if err != nil {
			return nil, wire.WrapField(err, fmt.Sprint(key))
		}
		out = append(out, MapEntry{Key: key, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return lessKey(out[i].Key, out[j].Key) })
	return out, nil
}

func lessKey(a, b any) bool {
	switch x := a.(type) {
	case int32:
		return x < b.(int32)
	case int64:
		return x < b.(int64)
	case uint32:
		return x < b.(uint32)
	case uint64:
		return x < b.(uint64)
	case string:
		return x < b.(string)
	case bool:
		return !x && b.(bool)
	}
	return false
}

func (m *Message) coerce(ft *schema.FieldType, raw any) (any, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return coerceScalar(ft.PrimitiveType, raw)
	case schema.KindWrapper:
		return coerceScalar(ft.WrapperType.ValueType(), raw)
	case schema.KindEnum:
		return m.coerceEnum(ft.EnumType, raw)
	case schema.KindMessage:
		switch t := raw.(type) {
		case *Message:
			return m.checkValue(ft, t)
		case map[string]any:
			desc, err := m.messageType(ft.MessageType)
			if err != nil {
				return nil, err
			}
			child := New(desc, m.res)
			if err := child.FromMap(t); err != nil {
				return nil, err
			}
			return child, nil
		}
		return nil, mismatch("map[string]any", raw)
	}
	return nil, fmt.Errorf("%w: unsupported field kind %s", ErrTypeMismatch, ft.Kind)
}

func (m *Message) coerceEnum(typeName string, raw any) (any, error) {
	if ev, ok := raw.(EnumValue); ok {
		return ev, nil
	}
	if name, ok := raw.(string); ok {
		enum, err := m.enumType(typeName)
		if err != nil {
			return nil, err
		}
		if v, ok := enum.ValueByName(name); ok {
			return EnumValue{Number: v.Number, Name: v.Name}, nil
		}
		// numeric strings are accepted below
		if _, err := strconv.ParseInt(name, 10, 32); err != nil {
			return nil, fmt.Errorf("%w: %q is not a value of %s", ErrTypeMismatch, name, enum.FullName)
		}
	}
	n, err := coerceToInt64(raw)
	if err != nil {
		return nil, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("%w: enum number %d out of range", ErrTypeMismatch, n)
	}
	return m.enumValue(typeName, int32(n))
}

func coerceScalar(t schema.PrimitiveType, raw any) (any, error) {
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		n, err := coerceToInt64(raw)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %d overflows int32", ErrTypeMismatch, n)
		}
		return int32(n), nil
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return coerceToInt64(raw)
	case schema.TypeUint32, schema.TypeFixed32:
		n, err := coerceToUint64(raw)
		if err != nil {
			return nil, err
		}
		if n > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %d overflows uint32", ErrTypeMismatch, n)
		}
		return uint32(n), nil
	case schema.TypeUint64, schema.TypeFixed64:
		return coerceToUint64(raw)
	case schema.TypeFloat:
		f, err := coerceToFloat64(raw)
		return float32(f), err
	case schema.TypeDouble:
		return coerceToFloat64(raw)
	case schema.TypeBool:
		switch b := raw.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
	case schema.TypeString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case schema.TypeBytes:
		switch b := raw.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
	}
	return nil, mismatch(string(t), raw)
}

// Helpers to coerce loosely typed inputs to integers (accept exponent/float forms if integral)
func coerceToInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrTypeMismatch, t)
		}
		return int64(t), nil
	case json.Number:
		if iv, err := t.Int64(); err == nil {
			return iv, nil
		}
		return integralFloat(t.String())
	case float32:
		return integral(float64(t))
	case float64:
		return integral(t)
	case string:
		if strings.ContainsAny(t, ".eE") {
			return integralFloat(t)
		}
		return strconv.ParseInt(t, 0, 64)
	default:
		return 0, fmt.Errorf("%w: expected integer-like, got %T", ErrTypeMismatch, v)
	}
}

func coerceToUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case uint:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case json.Number:
		if uv, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return uv, nil
		}
		n, err := integralFloat(t.String())
		if err != nil {
			return 0, err
		}
		return nonNegative(n)
	case string:
		if !strings.ContainsAny(t, ".eE") {
			return strconv.ParseUint(t, 0, 64)
		}
	}
	n, err := coerceToInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: expected unsigned-integer-like, got %T", ErrTypeMismatch, v)
	}
	return nonNegative(n)
}

func nonNegative(n int64) (uint64, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative value %d for unsigned field", ErrTypeMismatch, n)
	}
	return uint64(n), nil
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: non-integer numeric %v for integer field", ErrTypeMismatch, f)
	}
	return int64(f), nil
}

func integralFloat(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return integral(f)
}

func coerceToFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(t, 64)
	}
	n, err := coerceToInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: expected number, got %T", ErrTypeMismatch, v)
	}
	return float64(n), nil
}
