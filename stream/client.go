package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wetware/naive/kernel"
)

// ErrHandshake is returned by Dial when the listener's reply is malformed.
var ErrHandshake = errors.New("handshake failed")

// Client is the connecting side of a stream.  It owns a private endpoint
// on which the server pushes output.
type Client struct {
	self  kernel.EpCap // private endpoint, unbadged
	conn  kernel.EpCap // badged capability received in the handshake
	alloc kernel.Allocator
	flags Flags

	mu      sync.Mutex
	pending bytes.Buffer
	closed  bool
}

// Dial connects to the listener behind connector.  The client's private
// endpoint self is transferred to the server, which uses it to reply.
func Dial(ctx context.Context, alloc kernel.Allocator, self, connector kernel.EpCap) (*Client, error) {
	if err := connector.Send(ctx, nil, self.Slot); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	recv, err := alloc.Alloc()
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	res, err := self.Receive(ctx, recv)
	if err != nil {
		alloc.Free(recv)
		return nil, fmt.Errorf("dial: %w", err)
	}

	msg, ok := res.(kernel.Message)
	if !ok || !msg.Transfer || len(msg.Payload) != 1 {
		alloc.Free(recv)
		return nil, ErrHandshake
	}

	return &Client{
		self:  self,
		conn:  kernel.NewEpCap(self.Kernel, recv),
		alloc: alloc,
		flags: Flags(msg.Payload[0]),
	}, nil
}

// Flags returns the flow-control flags advertised by the server.
func (c *Client) Flags() Flags { return c.flags }

// Write sends p to the server.  If the server does not sleep on read,
// bytes are buffered until Flush.
func (c *Client) Write(ctx context.Context, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.pending.Write(p)
	if !c.flags.SleepOnRead() {
		return nil
	}

	return c.flush(ctx)
}

// Flush sends buffered bytes to the server.
func (c *Client) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	return c.flush(ctx)
}

// flush the pending buffer.  Caller MUST hold mu.
func (c *Client) flush(ctx context.Context) error {
	for c.pending.Len() > 0 {
		if err := c.conn.Send(ctx, dataMessage(c.pending.Next(maxChunk))); err != nil {
			return err
		}
	}

	return nil
}

// Poll asks the server to push its pending output.  The output, if any,
// is returned by Recv.
func (c *Client) Poll(ctx context.Context) error {
	return c.send(ctx, TagPoll)
}

// Recv blocks until the server pushes output.
func (c *Client) Recv(ctx context.Context) ([]byte, error) {
	res, err := c.self.Receive(ctx, kernel.NullSlot)
	if err != nil {
		return nil, err
	}

	msg, ok := res.(kernel.Message)
	if !ok || len(msg.Payload) == 0 || Tag(msg.Payload[0]) != TagData {
		return nil, fmt.Errorf("unexpected reply %v", res)
	}

	return msg.Payload[1:], nil
}

// Close the connection.  The server releases its resources, and the
// client frees the connection capability.
func (c *Client) Close(ctx context.Context) error {
	if err := c.send(ctx, TagClose); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return c.alloc.Free(c.conn.Slot)
}

func (c *Client) send(ctx context.Context, tag Tag) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	return c.conn.Send(ctx, []byte{byte(tag)})
}
