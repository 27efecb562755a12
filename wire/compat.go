package wire

import (
	"os"
	"strconv"
)

// DefaultMaxDepth matches the recursion limit of google.golang.org/protobuf.
const DefaultMaxDepth = 100

// Config controls optional Reader behaviors. The zero value is not useful on its own;
// start from DefaultConfig.
type Config struct {
	// CopyBytes: when true, bytes and string payloads are copied out of the input
	// buffer on decode. When false (default), ReadBytesSlice returns views that alias
	// the input and ReadBytes returns a sub-slice of it.
	CopyBytes bool

	// MaxDepth bounds how deeply ReadMessage may nest. Exceeding it fails the decode
	// with ErrDepthExceeded.
	MaxDepth int
}

var defaultConfig = Config{
	MaxDepth: DefaultMaxDepth,
}

func init() {
	// Optional env toggles for test harnesses; defaults remain unchanged if unset.
	if v := os.Getenv("PROTOCODEC_COPY_BYTES"); v == "1" || v == "true" {
		defaultConfig.CopyBytes = true
	}
	if v := os.Getenv("PROTOCODEC_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			defaultConfig.MaxDepth = n
		}
	}
}

// DefaultConfig returns the process-wide defaults, including env overrides.
func DefaultConfig() Config { return defaultConfig }
