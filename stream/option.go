package stream

import (
	"io"

	"github.com/lthibault/log"
)

type Option func(*Mux)

// WithLogger sets the logger instance.  If l == nil, the server's
// logger is used.
func WithLogger(l log.Logger) Option {
	return func(m *Mux) {
		if m.log = l; l == nil {
			m.log = m.srv.Log()
		}
	}
}

// WithSink sets the writer that receives inbound connection bytes.  If
// w == nil, inbound bytes stay buffered in the connection.
func WithSink(w io.Writer) Option {
	return func(m *Mux) {
		m.sink = w
	}
}

// WithSource sets the non-blocking reader from which outbound bytes are
// pulled when a peer polls.  If r == nil, only bytes written directly to
// a Conn are sent.
func WithSource(r io.Reader) Option {
	return func(m *Mux) {
		m.source = r
	}
}

func withDefault(opt []Option) []Option {
	return append([]Option{
		WithLogger(nil),
	}, opt...)
}
