package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/dynamic"
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// printRaw writes schema-less fields in the layout of protoc --decode_raw
func printRaw(w io.Writer, fields []protocodec.RawField, indent int) {
	pad := strings.Repeat("  ", indent)
	for _, f := range fields {
		if f.Message != nil {
			fmt.Fprintf(w, "%s%d {\n", pad, f.Number)
			printRaw(w, f.Message, indent+1)
			fmt.Fprintf(w, "%s}\n", pad)
			continue
		}
		switch v := f.Value.(type) {
		case uint64:
			if f.WireType == wire.WireFixed64 {
				fmt.Fprintf(w, "%s%d: 0x%016x\n", pad, f.Number, v)
			} else {
				fmt.Fprintf(w, "%s%d: %d\n", pad, f.Number, v)
			}
		case uint32:
			fmt.Fprintf(w, "%s%d: 0x%08x\n", pad, f.Number, v)
		case string:
			fmt.Fprintf(w, "%s%d: %s\n", pad, f.Number, strconv.Quote(v))
		case []byte:
			fmt.Fprintf(w, "%s%d: %s\n", pad, f.Number, strconv.Quote(string(v)))
		}
	}
}

// printMessage writes a decoded message in protobuf text format. Unknown fields follow
// the known ones, by number.
func printMessage(w io.Writer, m *dynamic.Message, indent int) {
	pad := strings.Repeat("  ", indent)
	m.Range(func(f *schema.Field, v any) bool {
		switch t := v.(type) {
		case []any:
			for _, e := range t {
				printValue(w, indent, f.Name, e)
			}
		case []dynamic.MapEntry:
			for _, e := range t {
				fmt.Fprintf(w, "%s%s {\n", pad, f.Name)
				printValue(w, indent+1, "key", e.Key)
				printValue(w, indent+1, "value", e.Value)
				fmt.Fprintf(w, "%s}\n", pad)
			}
		default:
			printValue(w, indent, f.Name, v)
		}
		return true
	})
	m.Unknown().Range(func(n wire.FieldNumber, f wire.UnknownField) bool {
		switch f.Kind() {
		case wire.UnknownVarint:
			fmt.Fprintf(w, "%s%d: %d\n", pad, n, f.Varint())
		case wire.UnknownFixed32:
			fmt.Fprintf(w, "%s%d: 0x%08x\n", pad, n, f.Fixed32())
		case wire.UnknownFixed64:
			fmt.Fprintf(w, "%s%d: 0x%016x\n", pad, n, f.Fixed64())
		case wire.UnknownLengthDelimited:
			fmt.Fprintf(w, "%s%d: %s\n", pad, n, strconv.Quote(string(f.Bytes().Bytes())))
		}
		return true
	})
}

func printValue(w io.Writer, indent int, name string, v any) {
	pad := strings.Repeat("  ", indent)
	switch t := v.(type) {
	case *dynamic.Message:
		fmt.Fprintf(w, "%s%s {\n", pad, name)
		printMessage(w, t, indent+1)
		fmt.Fprintf(w, "%s}\n", pad)
	case string:
		fmt.Fprintf(w, "%s%s: %s\n", pad, name, strconv.Quote(t))
	case []byte:
		fmt.Fprintf(w, "%s%s: %s\n", pad, name, strconv.Quote(string(t)))
	case float32:
		fmt.Fprintf(w, "%s%s: %s\n", pad, name, strconv.FormatFloat(float64(t), 'g', -1, 32))
	case float64:
		fmt.Fprintf(w, "%s%s: %s\n", pad, name, strconv.FormatFloat(t, 'g', -1, 64))
	default:
		fmt.Fprintf(w, "%s%s: %v\n", pad, name, t)
	}
}
