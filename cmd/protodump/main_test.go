package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/anirudhraja/protocodec/delimited"
)

const testProto = `syntax = "proto3";
package demo;

enum Kind {
  KIND_UNSPECIFIED = 0;
  KIND_BOOK = 1;
}

message Tag {
  string label = 1;
}

message Item {
  int32 id = 1;
  string title = 2;
  Kind kind = 3;
  repeated Tag tags = 4;
  map<string, int32> stock = 5;
  double price = 6;
}
`

// id=150, title="Go", kind=KIND_BOOK, tags=[{label:"new"}], stock={"a":2}, price=1.5,
// then unknown field 9 = 7
const itemHex = "089601 1202476f 1801 2205 0a036e6577 2a05 0a0161 1002 3100000000 0000f83f 4807"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCmd(t *testing.T, stdin []byte, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, bytes.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Raw(t *testing.T) {
	out, _, err := runCmd(t, []byte(itemHex), "-hex")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := strings.Join([]string{
		"1: 150",
		`2: "Go"`,
		"3: 1",
		"4 {",
		`  1: "new"`,
		"}",
		"5 {",
		`  1: "a"`,
		"  2: 2",
		"}",
		"6: 0x3ff8000000000000",
		"9: 7",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Typed(t *testing.T) {
	dir := t.TempDir()
	proto := writeFile(t, dir, "demo.proto", testProto)
	input := writeFile(t, dir, "item.hex", itemHex)

	out, _, err := runCmd(t, nil, "-proto", proto, "-type", "demo.Item", "-hex", input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := strings.Join([]string{
		"id: 150",
		`title: "Go"`,
		"kind: KIND_BOOK",
		"tags {",
		`  label: "new"`,
		"}",
		"stock {",
		`  key: "a"`,
		"  value: 2",
		"}",
		"price: 1.5",
		"9: 7",
		"",
	}, "\n")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_DelimitedStream(t *testing.T) {
	var stream bytes.Buffer
	w, err := delimited.NewWriter(&stream, delimited.WithCompression(delimited.Zstd))
	if err != nil {
		t.Fatal(err)
	}
	for _, payload := range [][]byte{{0x08, 0x01}, {0x08}, {0x08, 0x03}} {
		if err := w.WriteRaw(payload); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	out, logs, err := runCmd(t, stream.Bytes(), "-delimited", "-compression", "zstd")
	if err == nil || !strings.Contains(err.Error(), "1 of 3 messages failed") {
		t.Fatalf("got %v, want a failure count", err)
	}
	want := "# message 0\n1: 1\n# message 1\n# message 2\n1: 3\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs, "decode failed") {
		t.Errorf("expected the failure to be logged, got %q", logs)
	}
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	proto := writeFile(t, dir, "demo.proto", testProto)
	cfgPath := writeFile(t, dir, "protodump.toml", `
protos = ["`+filepath.ToSlash(proto)+`"]
type = "demo.Tag"
hex = true
`)

	out, _, err := runCmd(t, []byte("0a 03 6e 65 77"), "-config", cfgPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "label: \"new\"\n" {
		t.Errorf("output = %q", out)
	}

	// flags win over the file
	out, _, err = runCmd(t, []byte("0a 03 6e 65 77"), "-config", cfgPath, "-type", "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "1: \"new\"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	badCfg := writeFile(t, dir, "bad.toml", `colour = "blue"`)
	badCompression := writeFile(t, dir, "compression.toml", `compression = "brotli"`)

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"bad_hex", "zz", []string{"-hex"}, "decode hex input"},
		{"truncated", "\x08", nil, "unexpected end of buffer"},
		{"type_without_schema", "", []string{"-type", "demo.Item"}, "needs at least one -proto"},
		{"unknown_config_key", "", []string{"-config", badCfg}, "unknown key"},
		{"bad_compression", "", []string{"-config", badCompression}, "unknown compression"},
		{"bad_depth", "", []string{"-max-depth", "0"}, "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCmd(t, []byte(tt.stdin), tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "protodump.toml", `
protos = [" a.proto ", ""]
import_paths = ["inc"]
delimited = true
compression = "LZ4"
max_depth = 12
`)
	cfg, err := loadConfig(path, defaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := config{
		Protos:      []string{"a.proto"},
		ImportPaths: []string{"inc"},
		Delimited:   true,
		Compression: delimited.LZ4,
		MaxDepth:    12,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
