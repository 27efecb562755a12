package protocodec_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anirudhraja/protocodec"
)

func ExampleParseRaw() {
	// field 1 = 150, field 2 = "hello", field 3 = {field 1 = 1}
	data := []byte{0x08, 0x96, 0x01, 0x12, 0x05, 'h', 'e', 'l', 'l', 'o', 0x1a, 0x02, 0x08, 0x01}

	fields, err := protocodec.ParseRaw(data)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(protocodec.RawMap(fields))
	// Output:
	// map[field_1:map[type:varint value:150] field_2:map[type:bytes value:hello] field_3:map[type:message value:map[field_1:map[type:varint value:1]]]]
}

func ExampleCodec() {
	dir, err := os.MkdirTemp("", "protocodec-example")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer os.RemoveAll(dir)

	schema := `syntax = "proto3";
package example;
message User {
  int32 id = 1;
  string name = 2;
  repeated string tags = 4;
}`
	if err := os.WriteFile(filepath.Join(dir, "user.proto"), []byte(schema), 0o644); err != nil {
		fmt.Println("error:", err)
		return
	}

	codec := protocodec.New()
	if err := codec.LoadSchema(dir); err != nil {
		fmt.Println("error:", err)
		return
	}

	data, err := codec.Marshal(map[string]any{
		"id":   7,
		"name": "Ada",
		"tags": []string{"a", "b"},
	}, "example.User")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("%x\n", data)

	parsed, err := codec.Parse(data, "User")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(parsed)
	// Output:
	// 08071203416461220161220162
	// map[id:7 name:Ada tags:[a b]]
}
