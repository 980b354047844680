package runtime

import (
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/wetware/naive/console"
	"github.com/wetware/naive/ep"
	"github.com/wetware/naive/internal/config"
	"github.com/wetware/naive/kernel"
	"github.com/wetware/naive/kernel/sim"
	"github.com/wetware/naive/stream"
)

/****************************************************************************
 *                                                                          *
 *  server.go is responsible for the services hosted by the init thread.   *
 *                                                                          *
 ****************************************************************************/

var services = fx.Module("services", fx.Provide(
	newServer,
	newUART,
	newConsole,
	newMux))

func newServer(env Env, c config.Config, proc *sim.Process) (*ep.Server, error) {
	slot, err := proc.NewEndpoint()
	if err != nil {
		return nil, fmt.Errorf("root endpoint: %w", err)
	}

	return ep.New(kernel.NewEpCap(proc, slot), proc,
		ep.WithLogger(env.Log()),
		ep.WithMetrics(env.Metrics()),
		ep.WithBadgeBase(kernel.Badge(c.BadgeBase))), nil
}

func newUART(c config.Config) console.Pipe {
	return make(console.Pipe, c.InputBuffer)
}

func newConsole(env Env, c config.Config, uart console.Pipe) *console.Console {
	return console.New(uart, os.Stdout,
		console.WithLogger(env.Log()),
		console.WithBufferSize(c.InputBuffer))
}

func newMux(s *ep.Server, cons *console.Console) (*stream.Mux, error) {
	return stream.Listen(s,
		stream.WithSink(cons),
		stream.WithSource(cons))
}
