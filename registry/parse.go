package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protocodec/schema"
)

// convertProto builds the schema view of a parsed file. Field types naming messages or
// enums are left as written; buildDefinitions resolves them once every file of the load
// has been registered.
func convertProto(name string, proto *parser.Proto) (*schema.ProtoFile, error) {
	pf := &schema.ProtoFile{
		Name: name,
		// a file without a syntax statement is proto2
		Syntax:   schema.SyntaxProto2,
		Imports:  []*schema.Import{},
		Messages: []*schema.Message{},
		Enums:    []*schema.Enum{},
		Services: []*schema.Service{},
	}
	if proto.Syntax != nil {
		pf.Syntax = schema.Syntax(unquote(proto.Syntax.ProtobufVersion))
	}

	for _, body := range proto.ProtoBody {
		switch b := body.(type) {
		case *parser.Package:
			pf.Package = b.Name
		case *parser.Import:
			pf.Imports = append(pf.Imports, &schema.Import{
				Path:   unquote(b.Location),
				Public: b.Modifier == parser.ImportModifierPublic,
				Weak:   b.Modifier == parser.ImportModifierWeak,
			})
		case *parser.Message:
			msg, err := convertMessage(b, pf.Syntax)
			if err != nil {
				return nil, err
			}
			pf.Messages = append(pf.Messages, msg)
		case *parser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			pf.Enums = append(pf.Enums, enum)
		case *parser.Service:
			pf.Services = append(pf.Services, convertService(b))
		}
	}
	return pf, nil
}

func convertMessage(m *parser.Message, syntax schema.Syntax) (*schema.Message, error) {
	msg := &schema.Message{
		Name:        m.MessageName,
		Syntax:      syntax,
		Fields:      []*schema.Field{},
		NestedTypes: []*schema.Message{},
		NestedEnums: []*schema.Enum{},
		OneofGroups: []*schema.Oneof{},
	}

	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *parser.Field:
			field, err := newField(b.FieldName, b.FieldNumber, b.Type, b.FieldOptions)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.MessageName, err)
			}
			switch {
			case b.IsRepeated:
				field.Label = schema.LabelRepeated
			case b.IsRequired:
				field.Label = schema.LabelRequired
			}
			field.Optional = b.IsOptional
			msg.Fields = append(msg.Fields, field)
		case *parser.MapField:
			field, err := newField(b.MapName, b.FieldNumber, b.Type, b.FieldOptions)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.MessageName, err)
			}
			if !schema.IsPrimitiveType(b.KeyType) {
				return nil, fmt.Errorf("message %s: map field %s has non-scalar key type %s", m.MessageName, b.MapName, b.KeyType)
			}
			value := field.Type
			field.Label = schema.LabelRepeated
			field.Type = schema.FieldType{
				Kind:     schema.KindMap,
				MapKey:   &schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.PrimitiveType(b.KeyType)},
				MapValue: &value,
			}
			msg.Fields = append(msg.Fields, field)
		case *parser.Oneof:
			group := &schema.Oneof{Name: b.OneofName}
			for _, of := range b.OneofFields {
				field, err := newField(of.FieldName, of.FieldNumber, of.Type, of.FieldOptions)
				if err != nil {
					return nil, fmt.Errorf("message %s oneof %s: %w", m.MessageName, b.OneofName, err)
				}
				field.OneofIndex = int32(len(msg.OneofGroups))
				group.Fields = append(group.Fields, field)
			}
			msg.OneofGroups = append(msg.OneofGroups, group)
		case *parser.Message:
			nested, err := convertMessage(b, syntax)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *parser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, enum)
		case *parser.GroupField:
			return nil, fmt.Errorf("message %s: group fields are not supported", m.MessageName)
		}
	}
	return msg, nil
}

// newField builds a field whose type is either a resolved scalar or an unresolved
// message reference carrying the name as written.
func newField(name, number, typeName string, options []*parser.FieldOption) (*schema.Field, error) {
	n, err := strconv.ParseInt(number, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid number %q", name, number)
	}
	if n < 1 || n > (1<<29)-1 {
		return nil, fmt.Errorf("field %s: number %d out of range", name, n)
	}

	field := &schema.Field{
		Name:       name,
		Number:     int32(n),
		Label:      schema.LabelOptional,
		JsonName:   toLowerCamel(name),
		OneofIndex: -1,
	}
	if schema.IsPrimitiveType(typeName) {
		field.Type = schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.PrimitiveType(typeName)}
	} else {
		field.Type = schema.FieldType{Kind: schema.KindMessage, MessageType: typeName}
	}

	for _, opt := range options {
		switch opt.OptionName {
		case "packed":
			packed := opt.Constant == "true"
			field.Packed = &packed
		case "json_name":
			field.JsonName = unquote(opt.Constant)
		case "default":
			field.DefaultValue = unquote(opt.Constant)
		}
	}
	return field, nil
}

func convertEnum(e *parser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName}
	for _, body := range e.EnumBody {
		switch b := body.(type) {
		case *parser.EnumField:
			n, err := strconv.ParseInt(b.Number, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("enum %s value %s: invalid number %q", e.EnumName, b.Ident, b.Number)
			}
			enum.Values = append(enum.Values, &schema.EnumValue{
				Name:     b.Ident,
				Number:   int32(n),
				JsonName: b.Ident,
			})
		case *parser.Option:
			if b.OptionName == "allow_alias" {
				enum.AllowAlias = b.Constant == "true"
			}
		}
	}
	return enum, nil
}

func convertService(s *parser.Service) *schema.Service {
	service := &schema.Service{Name: s.ServiceName}
	for _, body := range s.ServiceBody {
		rpc, ok := body.(*parser.RPC)
		if !ok {
			continue
		}
		service.Methods = append(service.Methods, &schema.Method{
			Name:            rpc.RPCName,
			InputType:       rpc.RPCRequest.MessageType,
			OutputType:      rpc.RPCResponse.MessageType,
			ClientStreaming: rpc.RPCRequest.IsStream,
			ServerStreaming: rpc.RPCResponse.IsStream,
		})
	}
	return service
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}

// toLowerCamel converts snake_case to lowerCamelCase
func toLowerCamel(s string) string {
	if s == "" {
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}
