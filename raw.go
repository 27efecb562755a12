package protocodec

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/anirudhraja/protocodec/wire"
)

// ===== SCHEMA-LESS API =====

// RawField is one field occurrence decoded without a schema. Value holds a uint64 for
// varint and fixed64 fields, a uint32 for fixed32 fields, and for length-delimited
// fields a string when the payload is printable UTF-8, otherwise []byte. Message is set
// instead of Value when a non-text payload parses completely as a nested message.
type RawField struct {
	Number   wire.FieldNumber
	WireType wire.WireType
	Value    any
	Message  []RawField
}

// ParseRaw decodes data without a schema, in wire order
func ParseRaw(data []byte) ([]RawField, error) {
	return ParseRawWithConfig(data, wire.DefaultConfig())
}

// ParseRawWithConfig is ParseRaw with explicit reader options. Config.MaxDepth also
// bounds how deeply payloads are probed for nested messages.
func ParseRawWithConfig(data []byte, cfg wire.Config) ([]RawField, error) {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = wire.DefaultMaxDepth
	}
	return parseRaw(data, cfg, 0)
}

func parseRaw(data []byte, cfg wire.Config, depth int) ([]RawField, error) {
	r := wire.NewReaderWithConfig(data, cfg)
	fields := []RawField{}
	for {
		tag, err := r.ReadTag()
		if err != nil {
			return nil, err
		}
		if tag == 0 {
			return fields, nil
		}
		f := RawField{Number: tag.FieldNumber(), WireType: tag.WireType()}
		switch tag.WireType() {
		case wire.WireVarint:
			f.Value, err = r.ReadVarint()
		case wire.WireFixed64:
			f.Value, err = r.ReadFixed64()
		case wire.WireFixed32:
			f.Value, err = r.ReadFixed32()
		case wire.WireBytes:
			var payload []byte
			payload, err = r.ReadBytes()
			if err == nil {
				f.Value, f.Message = rawPayload(payload, cfg, depth)
			}
		}
		if err != nil {
			return nil, wire.WrapField(err, fmt.Sprintf("%d", f.Number))
		}
		fields = append(fields, f)
	}
}

func rawPayload(payload []byte, cfg wire.Config, depth int) (any, []RawField) {
	if isText(payload) {
		return string(payload), nil
	}
	if len(payload) > 0 && depth+1 < cfg.MaxDepth {
		if nested, err := parseRaw(payload, cfg, depth+1); err == nil {
			return nil, nested
		}
	}
	return payload, nil
}

func isText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// RawMap renders raw fields keyed "field_<number>". Each entry holds the wire type name
// under "type" and the value under "value", with nested messages rendered recursively.
// A field that occurs more than once maps to a list of entries.
func RawMap(fields []RawField) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		entry := map[string]any{"type": f.WireType.String()}
		if f.Message != nil {
			entry["type"] = "message"
			entry["value"] = RawMap(f.Message)
		} else {
			entry["value"] = f.Value
		}
		key := fmt.Sprintf("field_%d", f.Number)
		switch prev := out[key].(type) {
		case nil:
			out[key] = entry
		case []any:
			out[key] = append(prev, entry)
		default:
			out[key] = []any{prev, entry}
		}
	}
	return out
}
