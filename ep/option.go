package ep

import (
	"errors"
	"time"

	"github.com/jpillora/backoff"

	"github.com/lthibault/log"

	"github.com/wetware/naive"
	"github.com/wetware/naive/kernel"
)

type Option func(*Server)

// WithLogger sets the logger instance.
// If l == nil, a default logger is used.
func WithLogger(l log.Logger) Option {
	if l == nil {
		l = log.New()
	}

	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics sets the metrics sink.  Buckets are prefixed with "ep".
// If m == nil, metrics are discarded.
func WithMetrics(m naive.Metrics) Option {
	if m == nil {
		m = naive.NopMetrics{}
	}

	return func(s *Server) {
		s.metrics = m.WithPrefix("ep")
	}
}

// WithBadgeBase sets the first badge minted by the server's endpoint.
// If base == kernel.NoBadge, DefaultBadgeBase is used.
func WithBadgeBase(base kernel.Badge) Option {
	if base == kernel.NoBadge {
		base = DefaultBadgeBase
	}

	return func(s *Server) {
		s.base = base
	}
}

// WithErrHandler sets the callback for errors returned by handlers and
// by the kernel.  If h == nil, a default handler is used, which logs
// errors using the server's logger.
func WithErrHandler(h func(*Server, error)) Option {
	if h == nil {
		h = func(s *Server, err error) {
			var (
				pe ProtocolError
				se kernel.SyscallError
			)

			switch {
			case errors.As(err, &pe):
				s.Log().With(pe).Warn(pe.Message)

			case errors.As(err, &se):
				s.Log().With(se).Error("syscall failed")

			default:
				s.Log().WithError(err).Error("dispatch error")
			}
		}
	}

	return func(s *Server) {
		s.handleError = h
	}
}

// WithRetryBackoff bounds the delay between consecutive failed receives.
// The delay doubles after each failure, and is reset by the next
// successful receive.  If min <= 0, defaults of 1ms and 1s are used.
func WithRetryBackoff(min, max time.Duration) Option {
	if min <= 0 {
		min, max = time.Millisecond, time.Second
	}

	if max < min {
		max = min
	}

	return func(s *Server) {
		s.retry = backoff.Backoff{
			Factor: 2,
			Min:    min,
			Max:    max,
			Jitter: true,
		}
	}
}

func withDefault(opt []Option) []Option {
	return append([]Option{
		WithLogger(nil),
		WithMetrics(nil),
		WithBadgeBase(kernel.NoBadge),
		WithErrHandler(nil),
		WithRetryBackoff(0, 0),
	}, opt...)
}
