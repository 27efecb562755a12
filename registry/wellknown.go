package registry

import (
	"github.com/anirudhraja/protocodec/schema"
)

func scalarField(name string, number int32, t schema.PrimitiveType) *schema.Field {
	return &schema.Field{
		Name:       name,
		Number:     number,
		Label:      schema.LabelOptional,
		Type:       schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: t},
		OneofIndex: -1,
	}
}

// wellKnownMessages returns fresh definitions of the google.protobuf message types that
// schemas commonly import. Struct and Value are left out: they are recursive oneofs
// and need their .proto files on the import path.
func wellKnownMessages() []*schema.Message {
	msgs := []*schema.Message{
		{
			Name:   "Timestamp",
			Fields: []*schema.Field{scalarField("seconds", 1, schema.TypeInt64), scalarField("nanos", 2, schema.TypeInt32)},
		},
		{
			Name:   "Duration",
			Fields: []*schema.Field{scalarField("seconds", 1, schema.TypeInt64), scalarField("nanos", 2, schema.TypeInt32)},
		},
		{
			Name: "Empty",
		},
		{
			Name:   "Any",
			Fields: []*schema.Field{scalarField("type_url", 1, schema.TypeString), scalarField("value", 2, schema.TypeBytes)},
		},
		{
			Name: "FieldMask",
			Fields: []*schema.Field{{
				Name:       "paths",
				Number:     1,
				Label:      schema.LabelRepeated,
				Type:       schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString},
				OneofIndex: -1,
			}},
		},
	}

	wrappers := []schema.WrapperType{
		schema.WrapperDoubleValue, schema.WrapperFloatValue, schema.WrapperInt64Value,
		schema.WrapperUInt64Value, schema.WrapperInt32Value, schema.WrapperUInt32Value,
		schema.WrapperBoolValue, schema.WrapperStringValue, schema.WrapperBytesValue,
	}
	for _, w := range wrappers {
		msgs = append(msgs, &schema.Message{
			Name:      string(w)[len("google.protobuf."):],
			Fields:    []*schema.Field{scalarField("value", 1, w.ValueType())},
			IsWrapper: true,
		})
	}

	for _, m := range msgs {
		m.FullName = "google.protobuf." + m.Name
		m.Syntax = schema.SyntaxProto3
	}
	return msgs
}
