package dynamic

import (
	"os"
	"path/filepath"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
)

const shopProto = `syntax = "proto3";

package shop.v1;

import "google/protobuf/timestamp.proto";
import "google/protobuf/wrappers.proto";

enum Status {
  STATUS_UNSPECIFIED = 0;
  STATUS_ACTIVE = 1;
  STATUS_BLOCKED = 2;
}

message Scalars {
  int32 i32 = 1;
  int64 i64 = 2;
  uint32 u32 = 3;
  uint64 u64 = 4;
  sint32 s32 = 5;
  sint64 s64 = 6;
  fixed32 f32 = 7;
  fixed64 f64 = 8;
  sfixed32 sf32 = 9;
  sfixed64 sf64 = 10;
  float fl = 11;
  double db = 12;
  bool flag = 13;
  string text = 14;
  bytes blob = 15;
}

message Item {
  string sku = 1;
  int32 quantity = 2;
  Status status = 3;
}

message Order {
  string id = 1;
  repeated Item items = 2;
  map<string, int64> totals = 3;
  repeated int32 codes = 4;
  repeated int32 legacy = 5 [packed = false];
  oneof payment {
    string card = 6;
    int64 voucher = 7;
  }
  google.protobuf.StringValue note = 8;
  google.protobuf.Timestamp created = 9;
  map<int32, Item> by_line = 10;
  repeated Status history = 11;
  optional int32 priority = 12;
  repeated string tags = 13;
}

message Node {
  Node child = 1;
  int32 value = 2;
}
`

// mirrorProto declares wire-compatible copies of descriptor.proto messages, so the
// generated descriptorpb types can serve as a reference encoder for proto2 rules.
const mirrorProto = `syntax = "proto2";

package mirror;

message FieldDescriptorProto {
  enum Type {
    TYPE_DOUBLE = 1;
    TYPE_INT64 = 3;
    TYPE_INT32 = 5;
    TYPE_STRING = 9;
    TYPE_MESSAGE = 11;
  }
  enum Label {
    LABEL_OPTIONAL = 1;
    LABEL_REQUIRED = 2;
    LABEL_REPEATED = 3;
  }
  optional string name = 1;
  optional string extendee = 2;
  optional int32 number = 3;
  optional Label label = 4;
  optional Type type = 5;
  optional string type_name = 6;
  optional string default_value = 7;
  optional int32 oneof_index = 9;
  optional string json_name = 10;
  optional bool proto3_optional = 17;
}

message Location {
  repeated int32 path = 1 [packed = true];
  repeated int32 span = 2 [packed = true];
  optional string leading_comments = 3;
  optional string trailing_comments = 4;
  repeated string leading_detached_comments = 6;
}

message Defaults {
  optional int32 retries = 1 [default = 3];
  optional string mode = 2 [default = "fast"];
  optional FieldDescriptorProto.Label label = 3 [default = LABEL_REPEATED];
  optional double ratio = 4 [default = 0.5];
  optional FieldDescriptorProto.Type type = 5;
}
`

func loadRegistry(t testing.TB) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	reg := registry.NewRegistry()
	for name, src := range map[string]string{"shop.proto": shopProto, "mirror.proto": mirrorProto} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := reg.LoadSchema(path); err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
	}
	return reg
}

func descriptor(t testing.TB, reg *registry.Registry, name string) *schema.Message {
	t.Helper()
	desc, err := reg.GetMessage(name)
	if err != nil {
		t.Fatal(err)
	}
	return desc
}

func newMessage(t testing.TB, reg *registry.Registry, name string) *Message {
	t.Helper()
	return New(descriptor(t, reg, name), reg)
}

func mustSet(t testing.TB, m *Message, n int32, v any) {
	t.Helper()
	if err := m.Set(n, v); err != nil {
		t.Fatalf("Set(%d, %v): %v", n, v, err)
	}
}

func appendBytesField(b []byte, n protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, n, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func appendStringField(b []byte, n protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, n, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarintField(b []byte, n protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, n, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func packedVarints(values ...uint64) []byte {
	var b []byte
	for _, v := range values {
		b = protowire.AppendVarint(b, v)
	}
	return b
}
