// Package stream multiplexes connection-oriented byte streams over a
// single endpoint.  A well-known listener badge accepts connections;
// each accepted connection is addressed by a badge of its own, and its
// messages carry a direction tag selecting inbound or outbound traffic.
package stream

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/lthibault/log"
	"go.uber.org/multierr"

	"github.com/wetware/naive/ep"
	"github.com/wetware/naive/kernel"
)

// Mux accepts and serves connections on behalf of an ep.Server.  It is
// registered as the message handler for the listener badge, and for the
// badge of every live connection.
type Mux struct {
	log    log.Logger
	sink   io.Writer
	source io.Reader

	srv       *ep.Server
	badge     kernel.Badge
	connector kernel.EpCap

	done chan struct{}
	once sync.Once

	mu    sync.RWMutex
	conns map[kernel.Badge]*Conn
}

// Listen derives a listener badge from srv and begins accepting
// connections on it.  Peers connect by sending a message through the
// capability returned by Connector.
func Listen(srv *ep.Server, opt ...Option) (*Mux, error) {
	badge, connector, err := srv.DeriveBadgedCap()
	if err != nil {
		return nil, fmt.Errorf("derive listener badge: %w", err)
	}

	m := &Mux{
		srv:       srv,
		badge:     badge,
		connector: connector,
		done:      make(chan struct{}),
		conns:     make(map[kernel.Badge]*Conn),
	}

	for _, option := range withDefault(opt) {
		option(m)
	}

	m.log = m.log.WithField("listener", badge)
	srv.InsertEvent(badge, m)

	return m, nil
}

// Badge of the listener.
func (m *Mux) Badge() kernel.Badge { return m.badge }

// Connector returns the listener capability.  It is handed to peers,
// so that they may connect.
func (m *Mux) Connector() kernel.EpCap { return m.connector }

// Lookup returns the live connection identified by badge, or nil.
func (m *Mux) Lookup(badge kernel.Badge) *Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.conns[badge]
}

// Conns returns the number of live connections.
func (m *Mux) Conns() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.conns)
}

// Close stops accepting connections, and releases every live connection.
func (m *Mux) Close() (err error) {
	m.once.Do(func() {
		close(m.done)
		m.srv.RemoveEvent(m.badge)

		m.mu.Lock()
		defer m.mu.Unlock()

		for badge, c := range m.conns {
			m.srv.RemoveEvent(badge)
			err = multierr.Append(err, c.release())
		}

		m.conns = make(map[kernel.Badge]*Conn)
		err = multierr.Append(err, m.srv.Allocator().Free(m.connector.Slot))
	})

	return
}

// Wake answers pending polls.  It is called when new output may be
// available from the mux source.
func (m *Mux) Wake(ctx context.Context) (err error) {
	m.mu.RLock()
	waiting := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		if c.takePoll() {
			waiting = append(waiting, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range waiting {
		err = multierr.Append(err, c.poll(ctx, m.source))
	}

	return
}

// HandleMessage routes msg to the accept path or to a live connection.
func (m *Mux) HandleMessage(ctx context.Context, s *ep.Server, msg kernel.Message, t *ep.Transfer) error {
	if msg.Badge == m.badge {
		return m.accept(ctx, s, msg, t)
	}

	c := m.Lookup(msg.Badge)
	if c == nil {
		m.log.WithField("badge", msg.Badge).
			Warn("received badge not registered")
		return nil
	}

	return m.serve(ctx, s, c, msg)
}

func (m *Mux) accept(ctx context.Context, s *ep.Server, msg kernel.Message, t *ep.Transfer) error {
	if t == nil {
		return ep.ProtocolError{
			Message: "connection request without peer endpoint",
			Meta:    log.F{"listener": m.badge},
		}
	}

	k := s.Endpoint().Cap().Kernel
	peer := kernel.NewEpCap(k, t.Take())

	badge, self, err := s.DeriveBadgedCap()
	if err != nil {
		return multierr.Combine(
			fmt.Errorf("accept: %w", err),
			m.refuse(ctx, s, peer))
	}

	c := newConn(badge, self, peer, s.Allocator(), m.done)
	c.SleepOnRead()
	c.SleepOnWrite()

	if !m.insert(s, c) {
		return multierr.Combine(
			fmt.Errorf("accept: %w", ErrClosed),
			c.refuse(ctx))
	}

	if err = peer.Send(ctx, []byte{byte(c.Flags())}, self.Slot); err != nil {
		return multierr.Append(
			fmt.Errorf("accept: handshake: %w", err),
			m.drop(s, c))
	}

	m.log.With(c).Debug("accepted connection")
	return nil
}

// insert registers c, unless the mux is closing.
func (m *Mux) insert(s *ep.Server, c *Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return false
	default:
	}

	m.conns[c.badge] = c
	s.InsertEvent(c.badge, m)
	return true
}

// refuse replies to a connection request with an empty payload, so that
// the peer fails its handshake, then releases the peer endpoint.
func (m *Mux) refuse(ctx context.Context, s *ep.Server, peer kernel.EpCap) error {
	return multierr.Append(
		peer.Send(ctx, nil),
		s.Allocator().Free(peer.Slot))
}

func (m *Mux) serve(ctx context.Context, s *ep.Server, c *Conn, msg kernel.Message) error {
	if len(msg.Payload) == 0 {
		return ep.ProtocolError{
			Message: "missing direction tag",
			Meta:    log.F{"conn": c.badge},
		}
	}

	switch tag := Tag(msg.Payload[0]); tag {
	case TagData:
		return c.deliver(msg.Payload[1:], m.sink)

	case TagPoll:
		return c.poll(ctx, m.source)

	case TagClose:
		m.log.With(c).Debug("connection closed by peer")
		return m.drop(s, c)

	default:
		return ep.ProtocolError{
			Message: "unknown direction tag",
			Meta: log.F{
				"conn": c.badge,
				"tag":  tag,
			},
		}
	}
}

// drop deregisters the connection and releases its slots.
func (m *Mux) drop(s *ep.Server, c *Conn) error {
	m.mu.Lock()
	delete(m.conns, c.badge)
	m.mu.Unlock()

	s.RemoveEvent(c.badge)
	return c.release()
}
