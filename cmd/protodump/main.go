// Command protodump prints protobuf payloads in text form. Without -type it decodes
// the raw field structure like protoc --decode_raw; with -type it decodes against
// schemas loaded from .proto files.
package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/delimited"
	"github.com/anirudhraja/protocodec/wire"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "protodump: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("protodump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var protos, imports stringList
	configPath := fs.String("config", "", "TOML config file; flags override its values")
	fs.Var(&protos, "proto", "schema file or directory to load (repeatable)")
	fs.Var(&imports, "I", "directory searched for imports (repeatable)")
	typeName := fs.String("type", "", "message type to decode as; raw decoding when empty")
	hexInput := fs.Bool("hex", false, "input is hex text")
	delim := fs.Bool("delimited", false, "input is a stream of length-prefixed messages")
	compression := fs.String("compression", "", "stream compression: none|gzip|zstd|lz4")
	maxDepth := fs.Int("max-depth", 0, "message nesting limit")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: protodump [flags] [file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath, cfg); err != nil {
			return err
		}
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["proto"] {
		cfg.Protos = protos
	}
	if set["I"] {
		cfg.ImportPaths = imports
	}
	if set["type"] {
		cfg.Type = strings.TrimSpace(*typeName)
	}
	if set["hex"] {
		cfg.Hex = *hexInput
	}
	if set["delimited"] {
		cfg.Delimited = *delim
	}
	if set["compression"] {
		c, err := delimited.ParseCompression(*compression)
		if err != nil {
			return err
		}
		cfg.Compression = c
	}
	if set["max-depth"] {
		if *maxDepth <= 0 {
			return fmt.Errorf("-max-depth must be positive, got %d", *maxDepth)
		}
		cfg.MaxDepth = *maxDepth
	}
	if set["v"] {
		cfg.Verbose = *verbose
	}

	log := newLogger(stderr, cfg.Verbose)

	data, err := readInput(fs.Arg(0), stdin, cfg.Hex)
	if err != nil {
		return err
	}
	log.Debug().Int("bytes", len(data)).Str("type", cfg.Type).Bool("delimited", cfg.Delimited).Msg("input read")

	dump, err := newDumper(cfg, log, stdout)
	if err != nil {
		return err
	}
	if !cfg.Delimited {
		if cfg.Compression != delimited.None {
			log.Warn().Str("compression", cfg.Compression.String()).Msg("compression only applies to delimited input")
		}
		return dump(data)
	}
	return dumpStream(data, cfg, log, stdout, dump)
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "protodump").Logger()
}

func readInput(path string, stdin io.Reader, hexText bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if !hexText {
		return data, nil
	}
	decoded, err := hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
	if err != nil {
		return nil, fmt.Errorf("decode hex input: %w", err)
	}
	return decoded, nil
}

// newDumper returns a function that decodes one payload and prints it
func newDumper(cfg config, log zerolog.Logger, out io.Writer) (func([]byte) error, error) {
	readerCfg := wire.DefaultConfig()
	readerCfg.MaxDepth = cfg.MaxDepth

	if cfg.Type == "" {
		return func(payload []byte) error {
			fields, err := protocodec.ParseRawWithConfig(payload, readerCfg)
			if err != nil {
				return err
			}
			printRaw(out, fields, 0)
			return nil
		}, nil
	}

	if len(cfg.Protos) == 0 {
		return nil, errors.New("-type needs at least one -proto schema")
	}
	codec := protocodec.New(
		protocodec.WithConfig(readerCfg),
		protocodec.WithImportPaths(cfg.ImportPaths...),
		protocodec.WithLogger(log),
	)
	for _, p := range cfg.Protos {
		if err := codec.LoadSchema(p); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", p, err)
		}
		log.Debug().Str("path", p).Msg("schema loaded")
	}
	if _, err := codec.NewMessage(cfg.Type); err != nil {
		return nil, err
	}
	return func(payload []byte) error {
		msg, err := codec.ParseMessage(payload, cfg.Type)
		if err != nil {
			return err
		}
		printMessage(out, msg, 0)
		return nil
	}, nil
}

// dumpStream prints every message of a delimited stream. A message that fails to
// decode is logged and skipped; the command still fails at the end.
func dumpStream(data []byte, cfg config, log zerolog.Logger, out io.Writer, dump func([]byte) error) error {
	r, err := delimited.NewReader(bytes.NewReader(data),
		delimited.WithCompression(cfg.Compression),
	)
	if err != nil {
		return err
	}
	defer r.Close()

	failed := 0
	err = delimited.Each(r, func(payload []byte) error {
		index := r.Count() - 1
		fmt.Fprintf(out, "# message %d\n", index)
		if err := dump(payload); err != nil {
			log.Error().Err(err).Int("message", index).Msg("decode failed")
			failed++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	log.Debug().Int("messages", r.Count()).Int("failed", failed).Msg("stream done")
	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed to decode", failed, r.Count())
	}
	return nil
}
