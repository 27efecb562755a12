package protocodec

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Unmarshal decodes data as messageType into the struct v points to. Struct fields are
// matched by a `proto:"name"` tag, then a json tag, then the snake_case of the Go field
// name. Nested messages fill nested structs or struct pointers, repeated fields fill
// slices and map fields fill Go maps. Enum values arrive as their names, so enum fields
// map to string fields.
func (c *Codec) Unmarshal(data []byte, messageType string, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct, got %T", v)
	}
	msg, err := c.ParseMessage(data, messageType)
	if err != nil {
		return err
	}
	return mapToStruct(msg.ToMap(), rv.Elem())
}

// mapToStruct maps parsed fields to struct fields
func mapToStruct(data map[string]any, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)
		if !fieldValue.CanSet() {
			continue
		}
		name := fieldName(field)
		if name == "-" {
			continue
		}
		if value, ok := data[name]; ok {
			if err := setFieldValue(fieldValue, value); err != nil {
				return fmt.Errorf("failed to set field %s: %w", field.Name, err)
			}
		}
	}
	return nil
}

func fieldName(f reflect.StructField) string {
	for _, key := range []string{"proto", "json"} {
		if tag, ok := f.Tag.Lookup(key); ok {
			if name, _, _ := strings.Cut(tag, ","); name != "" {
				return name
			}
		}
	}
	return toSnakeCase(f.Name)
}

// setFieldValue sets a struct field with type conversion
func setFieldValue(fieldValue reflect.Value, value any) error {
	if value == nil {
		return nil
	}

	switch src := value.(type) {
	case map[string]any:
		target := fieldValue
		if target.Kind() == reflect.Ptr && target.Type().Elem().Kind() == reflect.Struct {
			if target.IsNil() {
				target.Set(reflect.New(target.Type().Elem()))
			}
			target = target.Elem()
		}
		if target.Kind() != reflect.Struct {
			return fmt.Errorf("cannot store a message in %s", fieldValue.Type())
		}
		return mapToStruct(src, target)
	case []any:
		if fieldValue.Kind() != reflect.Slice {
			return fmt.Errorf("cannot store a list in %s", fieldValue.Type())
		}
		out := reflect.MakeSlice(fieldValue.Type(), len(src), len(src))
		for i, e := range src {
			if err := setFieldValue(out.Index(i), e); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		fieldValue.Set(out)
		return nil
	case map[any]any:
		if fieldValue.Kind() != reflect.Map {
			return fmt.Errorf("cannot store a map in %s", fieldValue.Type())
		}
		out := reflect.MakeMapWithSize(fieldValue.Type(), len(src))
		for k, e := range src {
			key := reflect.New(fieldValue.Type().Key()).Elem()
			if err := setFieldValue(key, k); err != nil {
				return fmt.Errorf("key %v: %w", k, err)
			}
			val := reflect.New(fieldValue.Type().Elem()).Elem()
			if err := setFieldValue(val, e); err != nil {
				return fmt.Errorf("value for %v: %w", k, err)
			}
			out.SetMapIndex(key, val)
		}
		fieldValue.Set(out)
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	if sourceValue.Type().AssignableTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue)
		return nil
	}

	// string to numeric conversion would reinterpret the value as a rune
	if sourceValue.Kind() != reflect.String && sourceValue.Type().ConvertibleTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue.Convert(fieldValue.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, fieldValue.Type())
}

// toSnakeCase converts a Go identifier to its snake_case proto field name
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
