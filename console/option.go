package console

import "github.com/lthibault/log"

type Option func(*Console)

// WithLogger sets the logger instance.
// If l == nil, a default logger is used.
func WithLogger(l log.Logger) Option {
	if l == nil {
		l = log.New()
	}

	return func(c *Console) {
		c.log = l
	}
}

// WithBufferSize bounds the input queue.  Input received while the queue
// is full is dropped.  If n < 1, a default size of 1024 is used.
func WithBufferSize(n int) Option {
	if n < 1 {
		n = 1024
	}

	return func(c *Console) {
		c.limit = n
	}
}

func withDefault(opt []Option) []Option {
	return append([]Option{
		WithLogger(nil),
		WithBufferSize(0),
	}, opt...)
}
