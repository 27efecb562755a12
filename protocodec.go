// Package protocodec decodes and encodes protobuf binary payloads against schemas
// loaded from .proto files at runtime, without generated code.
package protocodec

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec/dynamic"
	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// ===== SCHEMA-AWARE API =====

// Codec provides schema-aware protobuf operations without generated code
type Codec struct {
	registry *registry.Registry
	cfg      wire.Config
	log      zerolog.Logger
}

// Option configures a Codec
type Option func(*codecOptions)

type codecOptions struct {
	cfg         wire.Config
	importPaths []string
	log         zerolog.Logger
}

// WithConfig sets the reader options used by Parse and ParseMessage
func WithConfig(cfg wire.Config) Option {
	return func(o *codecOptions) { o.cfg = cfg }
}

// WithImportPaths adds directories searched for imported .proto files
func WithImportPaths(dirs ...string) Option {
	return func(o *codecOptions) { o.importPaths = append(o.importPaths, dirs...) }
}

// WithLogger sets the logger for schema loading and codec diagnostics
func WithLogger(l zerolog.Logger) Option {
	return func(o *codecOptions) { o.log = l }
}

// New creates a Codec with an empty schema registry
func New(opts ...Option) *Codec {
	o := codecOptions{
		cfg: wire.DefaultConfig(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Codec{
		registry: registry.NewRegistry(
			registry.WithImportPaths(o.importPaths...),
			registry.WithLogger(o.log),
		),
		cfg: o.cfg,
		log: o.log,
	}
}

// LoadSchema loads a .proto file, or every .proto file under a directory
func (c *Codec) LoadSchema(path string) error {
	return c.registry.LoadSchema(path)
}

// LoadRepo loads an already parsed collection of .proto files
func (c *Codec) LoadRepo(repo *schema.ProtoRepo) error {
	return c.registry.LoadRepo(repo)
}

// NewMessage returns an empty dynamic message of the named type
func (c *Codec) NewMessage(messageType string) (*dynamic.Message, error) {
	desc, err := c.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %w", err)
	}
	return dynamic.New(desc, c.registry), nil
}

// ParseMessage decodes data as a message of the named type
func (c *Codec) ParseMessage(data []byte, messageType string) (*dynamic.Message, error) {
	desc, err := c.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %w", err)
	}
	msg, err := wire.UnmarshalWithConfig(data, c.cfg, dynamic.Deserializer(desc, c.registry))
	if err != nil {
		c.log.Debug().Err(err).Str("type", desc.FullName).Int("bytes", len(data)).Msg("decode failed")
		return nil, fmt.Errorf("decode %s: %w", desc.FullName, err)
	}
	return msg, nil
}

// Parse decodes data as a message of the named type and returns its fields keyed by
// proto field name. See dynamic.Message.ToMap for the value types.
func (c *Codec) Parse(data []byte, messageType string) (map[string]any, error) {
	msg, err := c.ParseMessage(data, messageType)
	if err != nil {
		return nil, err
	}
	return msg.ToMap(), nil
}

// Marshal encodes a map keyed by proto or JSON field names as a message of the named
// type
func (c *Codec) Marshal(data map[string]any, messageType string) ([]byte, error) {
	msg, err := c.NewMessage(messageType)
	if err != nil {
		return nil, err
	}
	if err := msg.FromMap(data); err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Descriptor().FullName, err)
	}
	return wire.Marshal(msg), nil
}

// ===== CONTRACT TYPES =====

// Encode serializes any type implementing the message contract
func Encode(m wire.Message) []byte {
	return wire.Marshal(m)
}

// Decode deserializes data with a type's deserializer and rejects trailing bytes
func Decode[T any](data []byte, deserialize wire.Deserializer[T]) (T, error) {
	return wire.Unmarshal(data, deserialize)
}

// ===== REGISTRY ACCESS =====

func (c *Codec) Registry() *registry.Registry { return c.registry }
func (c *Codec) ListMessages() []string       { return c.registry.ListMessages() }
func (c *Codec) ListEnums() []string          { return c.registry.ListEnums() }
func (c *Codec) ListServices() []string       { return c.registry.ListServices() }
