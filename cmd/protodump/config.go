package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/anirudhraja/protocodec/delimited"
	"github.com/anirudhraja/protocodec/wire"
)

type config struct {
	Protos      []string
	ImportPaths []string
	Type        string
	Hex         bool
	Delimited   bool
	Compression delimited.Compression
	MaxDepth    int
	Verbose     bool
}

func defaultConfig() config {
	return config{
		Compression: delimited.None,
		MaxDepth:    wire.DefaultMaxDepth,
	}
}

type fileConfig struct {
	Protos      []string `toml:"protos"`
	ImportPaths []string `toml:"import_paths"`
	Type        string   `toml:"type"`
	Hex         bool     `toml:"hex"`
	Delimited   bool     `toml:"delimited"`
	Compression string   `toml:"compression"`
	MaxDepth    int      `toml:"max_depth"`
	Verbose     bool     `toml:"verbose"`
}

// loadConfig applies the keys present in the TOML file at path on top of cfg
func loadConfig(path string, cfg config) (config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load protodump config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load protodump config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("protos") {
		cfg.Protos = normalizePaths(raw.Protos)
	}
	if meta.IsDefined("import_paths") {
		cfg.ImportPaths = normalizePaths(raw.ImportPaths)
	}
	if meta.IsDefined("type") {
		cfg.Type = strings.TrimSpace(raw.Type)
	}
	if meta.IsDefined("hex") {
		cfg.Hex = raw.Hex
	}
	if meta.IsDefined("delimited") {
		cfg.Delimited = raw.Delimited
	}
	if meta.IsDefined("compression") {
		c, err := delimited.ParseCompression(raw.Compression)
		if err != nil {
			return config{}, fmt.Errorf("parse compression: %w", err)
		}
		cfg.Compression = c
	}
	if meta.IsDefined("max_depth") {
		if raw.MaxDepth <= 0 {
			return config{}, fmt.Errorf("max_depth must be positive, got %d", raw.MaxDepth)
		}
		cfg.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	return cfg, nil
}

func normalizePaths(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// stringList is a repeatable string flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
