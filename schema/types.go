package schema

import (
	"sort"
	"sync/atomic"

	"github.com/anirudhraja/protocodec/wire"
)

// ProtoRepo represents a collection of .proto files and their definitions.
type ProtoRepo struct {
	ProtoFiles map[string]*ProtoFile `json:"proto_files"`
}

// Syntax is the value of a file's syntax statement
type Syntax string

const (
	SyntaxProto2 Syntax = "proto2"
	SyntaxProto3 Syntax = "proto3"
)

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // file.proto
	Package  string     `json:"package"`  // package name
	Syntax   Syntax     `json:"syntax"`   // proto2 or proto3
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
	Services []*Service `json:"services"` // service definitions
}

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "google/protobuf/timestamp.proto"
	Public bool   `json:"public"` // public import
	Weak   bool   `json:"weak"`   // weak import
}

// Message represents a protobuf message definition
type Message struct {
	Name        string     `json:"name"`         // "User"
	FullName    string     `json:"full_name"`    // "example.v1.User"
	Syntax      Syntax     `json:"syntax"`       // syntax of the declaring file
	Fields      []*Field   `json:"fields"`       // message fields, oneof members excluded
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups
	MapEntry    bool       `json:"map_entry"`    // is this a map entry?
	IsWrapper   bool       `json:"is_wrapper"`   // is this a google.protobuf wrapper?

	idx atomic.Pointer[fieldIndex]
}

type fieldIndex struct {
	byNumber map[int32]*Field
	byName   map[string]*Field
	ordered  []*Field
}

// lookup builds the field index on first use. Two goroutines racing here build
// identical indexes, so either store wins.
func (m *Message) lookup() *fieldIndex {
	if idx := m.idx.Load(); idx != nil {
		return idx
	}
	idx := &fieldIndex{
		byNumber: make(map[int32]*Field),
		byName:   make(map[string]*Field),
	}
	for _, f := range m.AllFields() {
		idx.byNumber[f.Number] = f
		idx.byName[f.Name] = f
		if f.JsonName != "" {
			idx.byName[f.JsonName] = f
		}
	}
	idx.ordered = append([]*Field(nil), m.AllFields()...)
	sort.Slice(idx.ordered, func(i, j int) bool { return idx.ordered[i].Number < idx.ordered[j].Number })
	m.idx.Store(idx)
	return idx
}

// Reindex drops the field index so fields added after first use become visible
func (m *Message) Reindex() {
	m.idx.Store(nil)
}

// AllFields returns the regular fields followed by every oneof member
func (m *Message) AllFields() []*Field {
	if len(m.OneofGroups) == 0 {
		return m.Fields
	}
	all := make([]*Field, 0, len(m.Fields))
	all = append(all, m.Fields...)
	for _, o := range m.OneofGroups {
		all = append(all, o.Fields...)
	}
	return all
}

// FieldByNumber returns the field with the given number, or nil
func (m *Message) FieldByNumber(n int32) *Field {
	return m.lookup().byNumber[n]
}

// OrderedFields returns every field, oneof members included, in field number order
func (m *Message) OrderedFields() []*Field {
	return m.lookup().ordered
}

// FieldByName looks a field up by its proto name or JSON name
func (m *Message) FieldByName(name string) *Field {
	return m.lookup().byName[name]
}

// Field represents a message field
type Field struct {
	Name         string     `json:"name"`          // "user_name"
	Number       int32      `json:"number"`        // 1
	Label        FieldLabel `json:"label"`         // optional, required, repeated
	Type         FieldType  `json:"type"`          // field type information
	DefaultValue string     `json:"default_value"` // default value (proto2)
	JsonName     string     `json:"json_name"`     // JSON field name
	OneofIndex   int32      `json:"oneof_index"`   // oneof group index (-1 if not in oneof)
	Packed       *bool      `json:"packed"`        // explicit [packed=...] option, nil when absent
	Optional     bool       `json:"optional"`      // declared with the optional keyword
}

// HasPresence reports whether an unset field can be told apart from one set to its
// zero value. Proto3 scalars outside oneofs only have presence when declared optional.
func (f *Field) HasPresence(syntax Syntax) bool {
	if f.Label == LabelRepeated || f.Type.Kind == KindMap {
		return false
	}
	switch f.Type.Kind {
	case KindMessage, KindWrapper:
		return true
	}
	return syntax == SyntaxProto2 || f.OneofIndex >= 0 || f.Optional
}

// IsRepeated reports whether the field is a repeated (non-map) field
func (f *Field) IsRepeated() bool {
	return f.Label == LabelRepeated && f.Type.Kind != KindMap
}

// IsPacked reports whether a repeated field is written in packed form. Proto3 packs
// packable scalars unless told otherwise; proto2 only packs on request.
func (f *Field) IsPacked(syntax Syntax) bool {
	if !f.IsRepeated() {
		return false
	}
	switch f.Type.Kind {
	case KindPrimitive, KindEnum:
	default:
		return false
	}
	if f.Type.Kind == KindPrimitive && !f.Type.PrimitiveType.Packable() {
		return false
	}
	if f.Packed != nil {
		return *f.Packed
	}
	return syntax != SyntaxProto2
}

// Oneof represents a oneof group
type Oneof struct {
	Name   string   `json:"name"`   // "user_info"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum, map, wrapper
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // for message types: "User", "google.protobuf.Timestamp"
	EnumType      string        `json:"enum_type,omitempty"`      // for enum types
	WrapperType   WrapperType   `json:"wrapper_type,omitempty"`   // for wrapper types
	MapKey        *FieldType    `json:"map_key,omitempty"`        // for map key type
	MapValue      *FieldType    `json:"map_value,omitempty"`      // for map value type
}

// WireType returns the wire type a single value of this type is written with
func (t *FieldType) WireType() wire.WireType {
	if t.Kind == KindPrimitive {
		return t.PrimitiveType.WireType()
	}
	if t.Kind == KindEnum {
		return wire.WireVarint
	}
	return wire.WireBytes
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
	KindMap       TypeKind = "map"
	KindWrapper   TypeKind = "wrapper"
)

// PrimitiveType represents protobuf primitive types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
)

var primitiveWireTypes = map[PrimitiveType]wire.WireType{
	TypeDouble:   wire.WireFixed64,
	TypeFloat:    wire.WireFixed32,
	TypeInt64:    wire.WireVarint,
	TypeUint64:   wire.WireVarint,
	TypeInt32:    wire.WireVarint,
	TypeFixed64:  wire.WireFixed64,
	TypeFixed32:  wire.WireFixed32,
	TypeBool:     wire.WireVarint,
	TypeString:   wire.WireBytes,
	TypeBytes:    wire.WireBytes,
	TypeUint32:   wire.WireVarint,
	TypeSfixed32: wire.WireFixed32,
	TypeSfixed64: wire.WireFixed64,
	TypeSint32:   wire.WireVarint,
	TypeSint64:   wire.WireVarint,
}

// IsPrimitiveType reports whether name is a scalar type keyword
func IsPrimitiveType(name string) bool {
	_, ok := primitiveWireTypes[PrimitiveType(name)]
	return ok
}

// WireType returns the wire type of a single value
func (t PrimitiveType) WireType() wire.WireType {
	if wt, ok := primitiveWireTypes[t]; ok {
		return wt
	}
	return wire.WireBytes
}

// Packable reports whether repeated values of this type may use the packed encoding
func (t PrimitiveType) Packable() bool {
	return t.WireType() != wire.WireBytes
}

// IsPackedType checks and returns if the Primitive type is packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	return t.Packable()
}

// WrapperType represents protobuf wrapper types
type WrapperType string

const (
	WrapperDoubleValue WrapperType = "google.protobuf.DoubleValue"
	WrapperFloatValue  WrapperType = "google.protobuf.FloatValue"
	WrapperInt64Value  WrapperType = "google.protobuf.Int64Value"
	WrapperUInt64Value WrapperType = "google.protobuf.UInt64Value"
	WrapperInt32Value  WrapperType = "google.protobuf.Int32Value"
	WrapperUInt32Value WrapperType = "google.protobuf.UInt32Value"
	WrapperBoolValue   WrapperType = "google.protobuf.BoolValue"
	WrapperStringValue WrapperType = "google.protobuf.StringValue"
	WrapperBytesValue  WrapperType = "google.protobuf.BytesValue"
)

var wrapperValueTypes = map[WrapperType]PrimitiveType{
	WrapperDoubleValue: TypeDouble,
	WrapperFloatValue:  TypeFloat,
	WrapperInt64Value:  TypeInt64,
	WrapperUInt64Value: TypeUint64,
	WrapperInt32Value:  TypeInt32,
	WrapperUInt32Value: TypeUint32,
	WrapperBoolValue:   TypeBool,
	WrapperStringValue: TypeString,
	WrapperBytesValue:  TypeBytes,
}

// LookupWrapper returns the wrapper type for a fully qualified message name
func LookupWrapper(name string) (WrapperType, bool) {
	_, ok := wrapperValueTypes[WrapperType(name)]
	return WrapperType(name), ok
}

// ValueType returns the scalar type held in the wrapper's value field
func (w WrapperType) ValueType() PrimitiveType {
	return wrapperValueTypes[w]
}

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "Status"
	FullName   string       `json:"full_name"`   // "example.v1.Status"
	Values     []*EnumValue `json:"values"`      // enum values
	AllowAlias bool         `json:"allow_alias"` // allow_alias option
}

// ValueByNumber returns the first value declared with number n
func (e *Enum) ValueByNumber(n int32) (*EnumValue, bool) {
	for _, v := range e.Values {
		if v.Number == n {
			return v, true
		}
	}
	return nil, false
}

// ValueByName returns the value declared with the given name
func (e *Enum) ValueByName(name string) (*EnumValue, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// EnumValue represents an enum value
type EnumValue struct {
	Name     string `json:"name"`      // "ACTIVE"
	Number   int32  `json:"number"`    // 1
	JsonName string `json:"json_name"` // JSON field name
}

// Service represents a service definition
type Service struct {
	Name    string    `json:"name"`    // "UserService"
	Methods []*Method `json:"methods"` // service methods
}

// Method represents a service method
type Method struct {
	Name            string `json:"name"`             // "GetUser"
	InputType       string `json:"input_type"`       // "GetUserRequest"
	OutputType      string `json:"output_type"`      // "GetUserResponse"
	ClientStreaming bool   `json:"client_streaming"` // stream input
	ServerStreaming bool   `json:"server_streaming"` // stream output
}
