// Package console implements the console device service.  Input bytes
// are collected from the UART when its interrupt fires, and handed to
// connected peers on demand.  Output bytes written by peers are copied
// to the terminal.
package console

import (
	"context"
	"io"
	"sync"

	"github.com/eapache/queue"
	"github.com/lthibault/log"
	"github.com/sirupsen/logrus"

	"github.com/wetware/naive/ep"
)

// IRQAux is the interrupt line of the auxiliary mini-UART.
const IRQAux = 29

// Device is a byte-oriented input device.
type Device interface {
	// TryReadByte returns the next input byte, if one is available.
	TryReadByte() (byte, bool)
}

// Console buffers device input and serializes terminal output.  It
// satisfies ep.NotificationHandler, io.Reader and io.Writer.
type Console struct {
	log   log.Logger
	dev   Device
	limit int

	outMu sync.Mutex
	out   io.Writer

	mu      sync.Mutex
	in      *queue.Queue
	dropped int
}

// New console that reads from dev and writes to out.
func New(dev Device, out io.Writer, opt ...Option) *Console {
	c := &Console{
		dev: dev,
		out: out,
		in:  queue.New(),
	}

	for _, option := range withDefault(opt) {
		option(c)
	}

	return c
}

// HandleNotification drains the device into the input queue.  It is
// registered for the device's interrupt line.
func (c *Console) HandleNotification(ctx context.Context, s *ep.Server, bit int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for b, ok := c.dev.TryReadByte(); ok; b, ok = c.dev.TryReadByte() {
		if c.in.Length() >= c.limit {
			c.dropped++
			continue
		}

		c.in.Add(b)
		n++
	}

	c.log.WithFields(logrus.Fields{
		"irq":      bit,
		"read":     n,
		"buffered": c.in.Length(),
	}).Debug("drained device")

	return nil
}

// Read copies buffered input into p without blocking.  It returns zero
// bytes if no input is available.
func (c *Console) Read(p []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n < len(p) && c.in.Length() > 0 {
		p[n] = c.in.Remove().(byte)
		n++
	}

	return
}

// Buffered returns the number of input bytes awaiting a reader.
func (c *Console) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.in.Length()
}

// Dropped returns the number of input bytes discarded because the input
// queue was full.
func (c *Console) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dropped
}

// Write p to the terminal.
func (c *Console) Write(p []byte) (int, error) {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	return c.out.Write(p)
}
