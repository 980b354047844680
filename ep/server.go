// Package ep multiplexes a single kernel endpoint into many logical
// channels.  Each channel is identified by the badge of the capability
// its sender holds, and is served by a MessageHandler registered under
// that badge.  Notification bits are routed to NotificationHandlers.
package ep

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/lthibault/log"

	"github.com/wetware/naive"
	"github.com/wetware/naive/kernel"
)

// Server is a badge-multiplexing endpoint server.  Handlers may be
// registered and removed concurrently with Serve, including from within
// a handler.
type Server struct {
	id      uuid.UUID
	log     log.Logger
	metrics naive.Metrics
	base    kernel.Badge

	ep    *Endpoint
	alloc kernel.Allocator
	reg   registry

	handleError func(*Server, error)
	retry       backoff.Backoff
}

// New server for the unbadged endpoint capability root.  The allocator
// supplies receive slots and badged-capability slots.
func New(root kernel.EpCap, alloc kernel.Allocator, opt ...Option) *Server {
	s := &Server{
		id:    uuid.New(),
		alloc: alloc,
	}

	for _, option := range withDefault(opt) {
		option(s)
	}

	s.ep = FromUnbadged(root, alloc, s.base)
	s.log = s.log.WithField("server", s.String())

	return s
}

func (s *Server) String() string {
	return "ep:" + s.id.String()[:8]
}

func (s *Server) Log() log.Logger { return s.log }

// Endpoint returns the badge-minting endpoint wrapped by the server.
func (s *Server) Endpoint() *Endpoint { return s.ep }

// Allocator returns the slot allocator used by the server.
func (s *Server) Allocator() kernel.Allocator { return s.alloc }

// DeriveBadgedCap mints a fresh badge and a capability stamped with it.
// Messages sent through the capability are routed to the handler that
// is registered for the badge.
func (s *Server) DeriveBadgedCap() (kernel.Badge, kernel.EpCap, error) {
	return s.ep.DeriveBadgedCap()
}

// InsertEvent registers h for badge, replacing any previous handler.
func (s *Server) InsertEvent(badge kernel.Badge, h MessageHandler) {
	s.reg.insertEvent(badge, h)
}

// RemoveEvent deregisters the handler for badge.  Subsequent messages
// bearing the badge are dropped.
func (s *Server) RemoveEvent(badge kernel.Badge) {
	s.reg.removeEvent(badge)
}

// Events returns the number of registered message handlers.
func (s *Server) Events() int {
	return s.reg.len()
}

// InsertNotification registers h for the notification bit.  It panics
// if bit is not in [0, 64).
func (s *Server) InsertNotification(bit int, h NotificationHandler) {
	s.reg.insertNotification(bit, h)
}

// RemoveNotification deregisters the handler for the notification bit.
// It panics if bit is not in [0, 64).
func (s *Server) RemoveNotification(bit int) {
	s.reg.removeNotification(bit)
}

// Run the dispatch loop until the process exits.  It returns only if
// the initial receive slot cannot be allocated.
func (s *Server) Run() error {
	return s.Serve(context.Background())
}

// Serve runs the dispatch loop until ctx expires.  Exactly one receive
// is in flight at any time, and each handler runs to completion before
// the next receive is issued.  Kernel errors and routing failures are
// logged; they never stop the loop.
func (s *Server) Serve(ctx context.Context) error {
	recv, err := s.alloc.Alloc()
	if err != nil {
		return fmt.Errorf("alloc receive slot: %w", err)
	}
	defer func() { s.free(recv) }()

	s.log.Debug("serving")
	defer s.log.Debug("stopped")

	b := s.retry // copy; attempts are counted per call to Serve
	for {
		if recv == kernel.NullSlot {
			recv = s.allocRecv()
		}

		res, err := s.ep.Cap().Receive(ctx, recv)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			s.metrics.Incr("recv.error")
			s.handleError(s, err)

			// persistent failures must not spin the loop
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return ctx.Err()
			}

			continue
		}

		b.Reset()
		s.metrics.Incr("recv")

		switch r := res.(type) {
		case kernel.Message:
			if s.dispatchMessage(ctx, r, recv) {
				// The slot now belongs to the handler, or was freed.
				// Either way, it MUST NOT be reused.
				recv = kernel.NullSlot
			}

		case kernel.Notification:
			s.dispatchNotification(ctx, r)

		default:
			s.handleError(s, fmt.Errorf("unexpected receive result %T", res))
		}
	}
}

// dispatchMessage routes msg to the handler for its badge.  It reports
// whether the receive slot was consumed by a capability transfer.
func (s *Server) dispatchMessage(ctx context.Context, msg kernel.Message, recv kernel.Slot) bool {
	var t *Transfer
	if msg.Transfer {
		t = &Transfer{slot: recv}
		defer s.settle(t)
	}

	if !msg.Badged() {
		s.metrics.Incr("msg.unbadged")
		s.log.With(msg).Warn("received unbadged message")
		return msg.Transfer
	}

	h := s.reg.event(msg.Badge)
	if h == nil {
		s.metrics.Incr("msg.unhandled")
		s.log.With(msg).Warn("received message from unhandled badge")
		return msg.Transfer
	}

	s.metrics.Incr("msg.dispatched")
	if err := h.HandleMessage(ctx, s, msg, t); err != nil {
		s.handleError(s, err)
	}

	return msg.Transfer
}

// dispatchNotification invokes the handler of every set bit, from the
// least significant bit upward.  Unregistered bits are skipped.
func (s *Server) dispatchNotification(ctx context.Context, n kernel.Notification) {
	for mask := uint64(n); mask != 0; {
		bit := bits.TrailingZeros64(mask)
		mask &^= 1 << uint(bit)

		h := s.reg.notification(bit)
		if h == nil {
			continue
		}

		s.metrics.Incr("ntf.dispatched")
		if err := h.HandleNotification(ctx, s, bit); err != nil {
			s.handleError(s, err)
		}
	}
}

// settle frees the transferred capability unless the handler took it.
func (s *Server) settle(t *Transfer) {
	if !t.Taken() {
		s.metrics.Incr("slot.released")
		s.free(t.slot)
	}
}

func (s *Server) allocRecv() kernel.Slot {
	slot, err := s.alloc.Alloc()
	if err != nil {
		// Receive without a slot; transferred capabilities are dropped
		// by the kernel until allocation succeeds again.
		s.metrics.Incr("slot.realloc.error")
		s.log.WithError(err).Error("failed to allocate receive slot")
		return kernel.NullSlot
	}

	return slot
}

func (s *Server) free(slot kernel.Slot) {
	if slot == kernel.NullSlot {
		return
	}

	if err := s.alloc.Free(slot); err != nil {
		s.handleError(s, err)
	}
}
