package delimited

// DefaultMaxMessageSize bounds a single message in a stream
const DefaultMaxMessageSize = 64 << 20

type options struct {
	compression    Compression
	maxMessageSize int
}

// Option configures a Reader or Writer
type Option func(*options)

// WithCompression wraps the whole stream in codec c. Both ends must agree.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithMaxMessageSize rejects messages longer than n bytes
func WithMaxMessageSize(n int) Option {
	return func(o *options) { o.maxMessageSize = n }
}

func newOptions(opts []Option) options {
	o := options{
		compression:    None,
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
