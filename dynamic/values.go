package dynamic

import (
	"fmt"
	"math"
	"strconv"

	"github.com/anirudhraja/protocodec/schema"
)

func zeroScalar(t schema.PrimitiveType) any {
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return int32(0)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return int64(0)
	case schema.TypeUint32, schema.TypeFixed32:
		return uint32(0)
	case schema.TypeUint64, schema.TypeFixed64:
		return uint64(0)
	case schema.TypeFloat:
		return float32(0)
	case schema.TypeDouble:
		return float64(0)
	case schema.TypeBool:
		return false
	case schema.TypeString:
		return ""
	case schema.TypeBytes:
		return []byte{}
	}
	return nil
}

// zeroValue is the value a missing map key or value decodes to
func (m *Message) zeroValue(ft *schema.FieldType) (any, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return zeroScalar(ft.PrimitiveType), nil
	case schema.KindWrapper:
		return zeroScalar(ft.WrapperType.ValueType()), nil
	case schema.KindEnum:
		return m.enumValue(ft.EnumType, 0)
	case schema.KindMessage:
		desc, err := m.messageType(ft.MessageType)
		if err != nil {
			return nil, err
		}
		return New(desc, m.res), nil
	}
	return nil, fmt.Errorf("%w: unsupported field kind %s", ErrTypeMismatch, ft.Kind)
}

// defaultValue is what Get returns for an unset singular field: the declared
// [default=...] if any, the first value of an enum, the zero value otherwise.
func (m *Message) defaultValue(f *schema.Field) (any, error) {
	switch f.Type.Kind {
	case schema.KindMessage, schema.KindWrapper:
		return nil, nil
	case schema.KindEnum:
		enum, err := m.enumType(f.Type.EnumType)
		if err != nil {
			return nil, err
		}
		if f.DefaultValue != "" {
			v, ok := enum.ValueByName(f.DefaultValue)
			if !ok {
				return nil, fmt.Errorf("default %q is not a value of %s", f.DefaultValue, enum.FullName)
			}
			return EnumValue{Number: v.Number, Name: v.Name}, nil
		}
		if len(enum.Values) > 0 {
			return EnumValue{Number: enum.Values[0].Number, Name: enum.Values[0].Name}, nil
		}
		return EnumValue{}, nil
	case schema.KindPrimitive:
		if f.DefaultValue != "" {
			return parseScalar(f.Type.PrimitiveType, f.DefaultValue)
		}
		return zeroScalar(f.Type.PrimitiveType), nil
	}
	return nil, nil
}

// parseScalar parses a literal as written in a .proto default option
func parseScalar(t schema.PrimitiveType, s string) (any, error) {
	switch t {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		v, err := strconv.ParseInt(s, 0, 32)
		return int32(v), err
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		v, err := strconv.ParseInt(s, 0, 64)
		return v, err
	case schema.TypeUint32, schema.TypeFixed32:
		v, err := strconv.ParseUint(s, 0, 32)
		return uint32(v), err
	case schema.TypeUint64, schema.TypeFixed64:
		v, err := strconv.ParseUint(s, 0, 64)
		return v, err
	case schema.TypeFloat, schema.TypeDouble:
		var (
			f   float64
			err error
		)
		switch s {
		case "inf":
			f = math.Inf(1)
		case "-inf":
			f = math.Inf(-1)
		case "nan":
			f = math.NaN()
		default:
			f, err = strconv.ParseFloat(s, 64)
		}
		if t == schema.TypeFloat {
			return float32(f), err
		}
		return f, err
	case schema.TypeBool:
		return strconv.ParseBool(s)
	case schema.TypeString:
		return s, nil
	case schema.TypeBytes:
		return []byte(s), nil
	}
	return nil, fmt.Errorf("%w: unknown scalar type %q", ErrTypeMismatch, t)
}
