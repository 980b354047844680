package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	ctxutil "github.com/lthibault/util/ctx"
	"go.uber.org/multierr"

	"github.com/wetware/naive/kernel"
)

// ErrClosed is returned when operating on a closed connection.
var ErrClosed = errors.New("closed")

// Conn is the server side of an accepted connection.  It is addressed by
// a badge that is unique among the connections of its Mux.
type Conn struct {
	badge kernel.Badge
	self  kernel.EpCap // badged capability handed to the peer
	peer  kernel.EpCap // peer endpoint, taken from the handshake
	alloc kernel.Allocator
	done  <-chan struct{}

	rx, tx buffer
	sendMu sync.Mutex // serializes Flush

	mu     sync.Mutex
	flags  Flags
	polled bool // peer is waiting for output
	closed bool
}

func newConn(badge kernel.Badge, self, peer kernel.EpCap, alloc kernel.Allocator, done <-chan struct{}) *Conn {
	return &Conn{
		badge: badge,
		self:  self,
		peer:  peer,
		alloc: alloc,
		done:  done,
	}
}

func (c *Conn) String() string {
	return "conn:" + c.badge.String()
}

func (c *Conn) Loggable() map[string]interface{} {
	return map[string]interface{}{
		"conn":  c.badge,
		"flags": c.Flags(),
	}
}

// Badge identifying the connection's traffic.
func (c *Conn) Badge() kernel.Badge { return c.badge }

// SleepOnRead arms the read wakeup:  the peer will notify us as soon as
// it has written bytes.
func (c *Conn) SleepOnRead() { c.set(FlagSleepOnRead) }

// SleepOnWrite arms the write wakeup:  a poll that finds no pending
// output is answered as soon as output is written.
func (c *Conn) SleepOnWrite() { c.set(FlagSleepOnWrite) }

// Flags returns the connection's flow-control state.
func (c *Conn) Flags() Flags {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.flags
}

func (c *Conn) set(f Flags) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.flags |= f
}

// Buffered returns the number of bytes awaiting transmission.
func (c *Conn) Buffered() int { return c.tx.Len() }

// TryRead copies received bytes into p, without blocking.  It returns
// ErrInterrupt if fewer than len(p) bytes were available.
func (c *Conn) TryRead(p []byte) (int, error) {
	return c.rx.Read(p)
}

// Write queues p for transmission to the peer.  If the peer polled while
// nothing was pending, and the write wakeup is armed, the output is
// pushed immediately.
func (c *Conn) Write(p []byte) (n int, err error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return 0, ErrClosed
	}

	if n, err = c.tx.Write(p); err != nil {
		return
	}

	if c.takePoll() {
		err = c.Flush(ctxutil.C(c.done))
	}

	return
}

// Flush sends all pending output to the peer.  Nothing is sent if no
// output is pending.  Output is consumed only once it was sent, so a
// failed Flush may be retried.
func (c *Conn) Flush(ctx context.Context) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	var chunk [maxChunk]byte
	for n := c.tx.Peek(chunk[:]); n > 0; n = c.tx.Peek(chunk[:]) {
		if err := c.peer.Send(ctx, dataMessage(chunk[:n])); err != nil {
			return err
		}

		c.tx.Discard(n)
	}

	return nil
}

// poll answers a TagPoll.  Output is pulled from src into the transmit
// buffer, then flushed.  If nothing is pending, no message is sent.
func (c *Conn) poll(ctx context.Context, src io.Reader) error {
	if src != nil {
		if err := c.fill(src); err != nil {
			return err
		}
	}

	if c.tx.Len() == 0 {
		c.mu.Lock()
		c.polled = c.flags.SleepOnWrite()
		c.mu.Unlock()
		return nil
	}

	return c.Flush(ctx)
}

// fill copies everything currently available from src into the
// transmit buffer, or until the buffer is full.
func (c *Conn) fill(src io.Reader) error {
	var chunk [256]byte
	for free := bufsize - c.tx.Len(); free > 0; free = bufsize - c.tx.Len() {
		if free > len(chunk) {
			free = len(chunk)
		}

		n, err := src.Read(chunk[:free])
		if n > 0 {
			c.tx.Write(chunk[:n])
		}

		switch {
		case errors.Is(err, io.EOF), errors.Is(err, ErrInterrupt):
			return nil
		case err != nil:
			return err
		case n == 0:
			return nil
		}
	}

	return nil
}

// deliver buffers bytes from the peer, and drains them into dst.  If
// dst is nil, the bytes remain buffered for TryRead.
func (c *Conn) deliver(p []byte, dst io.Writer) error {
	var chunk [100]byte
	for len(p) > 0 {
		n, _ := c.rx.Write(p)
		p = p[n:]

		if dst == nil {
			if n == 0 {
				return ErrInterrupt // receive buffer overflow
			}

			continue
		}

		for {
			m, err := c.rx.Read(chunk[:])
			if m > 0 {
				if _, werr := dst.Write(chunk[:m]); werr != nil {
					return werr
				}
			}

			if err != nil || m == 0 {
				break
			}
		}
	}

	return nil
}

func (c *Conn) takePoll() (polled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	polled, c.polled = c.polled, false
	return
}

// refuse fails the peer's handshake, and releases the connection.
func (c *Conn) refuse(ctx context.Context) error {
	return multierr.Append(
		c.peer.Send(ctx, nil),
		c.release())
}

// release frees both capability slots held by the connection.
func (c *Conn) release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return multierr.Append(
		c.alloc.Free(c.self.Slot),
		c.alloc.Free(c.peer.Slot))
}
