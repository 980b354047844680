//go:generate mockgen -source=handler.go -destination=../internal/mock/ep/handler.go -package=mock_ep

package ep

import (
	"context"

	"github.com/wetware/naive/kernel"
)

// MessageHandler receives the messages sent through capabilities minted
// with a specific badge.
//
// Handlers run on the dispatch loop's goroutine, and MUST NOT block.  A
// blocked handler stalls delivery for every badge on the endpoint.
type MessageHandler interface {
	// HandleMessage is called once per message.  If the message carried
	// a capability, t is non-nil and holds the receive slot.  Handlers
	// that keep the capability MUST call t.Take(); untaken transfers are
	// freed when HandleMessage returns.  Errors are passed to the server's
	// error handler.
	HandleMessage(ctx context.Context, s *Server, msg kernel.Message, t *Transfer) error
}

// NotificationHandler is invoked for each set bit of a notification word.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, s *Server, bit int) error
}

// MessageHandlerFunc is an adapter that allows ordinary functions to be
// used as message handlers.
type MessageHandlerFunc func(context.Context, *Server, kernel.Message, *Transfer) error

func (f MessageHandlerFunc) HandleMessage(ctx context.Context, s *Server, msg kernel.Message, t *Transfer) error {
	return f(ctx, s, msg, t)
}

// NotificationHandlerFunc is an adapter that allows ordinary functions to
// be used as notification handlers.
type NotificationHandlerFunc func(context.Context, *Server, int) error

func (f NotificationHandlerFunc) HandleNotification(ctx context.Context, s *Server, bit int) error {
	return f(ctx, s, bit)
}
