package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lthibault/log"
	"github.com/thejerf/suture/v4"
	"go.uber.org/multierr"

	"github.com/wetware/naive/ep"
	"github.com/wetware/naive/kernel"
	"github.com/wetware/naive/kernel/sim"
	"github.com/wetware/naive/stream"
)

// attachIRQ mints the capability through which the UART raises its
// interrupt, and routes the interrupt line to the console.  New input
// answers any poll the mux has been holding.
func attachIRQ(s Services) (kernel.EpCap, error) {
	badge, irq, err := s.Server.DeriveBadgedCap()
	if err != nil {
		return kernel.EpCap{}, fmt.Errorf("irq: %w", err)
	}

	s.Server.InsertNotification(s.Config.IRQ, ep.NotificationHandlerFunc(
		func(ctx context.Context, srv *ep.Server, bit int) error {
			err := s.Console.HandleNotification(ctx, srv, bit)
			return multierr.Append(err, s.Mux.Wake(ctx))
		}))

	s.Log().
		WithField("irq", s.Config.IRQ).
		WithField("badge", badge).
		Debug("attached console interrupt")

	return irq, nil
}

// uart feeds bytes from the terminal into the console device, and raises
// the interrupt line after each byte.
type uart struct {
	log  log.Logger
	in   io.Reader
	dev  chan<- byte
	proc *sim.Process
	irq  kernel.EpCap
	line int
}

func (u *uart) String() string { return "uart" }

func (u *uart) Serve(ctx context.Context) error {
	cherr := make(chan error, 1)
	go func() {
		cherr <- u.read(ctx)
	}()

	select {
	case err := <-cherr:
		if errors.Is(err, io.EOF) {
			u.log.Debug("input closed")
			return suture.ErrDoNotRestart
		}

		return err

	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *uart) read(ctx context.Context) error {
	r := bufio.NewReader(u.in)

	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}

		select {
		case u.dev <- b:
		case <-ctx.Done():
			return ctx.Err()
		}

		if err = u.proc.Notify(u.irq.Slot, 1<<u.line); err != nil {
			return err
		}
	}
}

// shell is a child process that echoes console input back to the
// console through a stream connection.
type shell struct {
	log       log.Logger
	proc      *sim.Process
	self      kernel.EpCap
	connector kernel.EpCap
}

func spawnShell(s Services) (*shell, error) {
	proc := s.Kernel.Spawn("shell", sim.WithCSpaceSize(64))

	self, err := proc.NewEndpoint()
	if err != nil {
		return nil, fmt.Errorf("shell: %w", err)
	}

	connector, err := s.Kernel.Grant(s.Init, s.Mux.Connector().Slot, proc)
	if err != nil {
		return nil, fmt.Errorf("shell: %w", err)
	}

	return &shell{
		log:       s.Log().WithField("proc", proc.String()),
		proc:      proc,
		self:      kernel.NewEpCap(proc, self),
		connector: kernel.NewEpCap(proc, connector),
	}, nil
}

func (sh *shell) String() string { return "shell" }

func (sh *shell) Serve(ctx context.Context) error {
	c, err := stream.Dial(ctx, sh.proc, sh.self, sh.connector)
	if err != nil {
		return err
	}
	defer c.Close(context.Background())

	sh.log.WithField("flags", c.Flags()).Debug("shell connected")

	for {
		if err = c.Poll(ctx); err != nil {
			return err
		}

		b, err := c.Recv(ctx)
		if err != nil {
			return err
		}

		if err = c.Write(ctx, b); err != nil {
			return err
		}
	}
}
