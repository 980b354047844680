package runtime

import (
	"context"

	"go.uber.org/fx"

	"github.com/wetware/naive/internal/config"
	"github.com/wetware/naive/kernel/sim"
)

/*************************************************************************
 *                                                                       *
 *  system.go is responsible for interacting with the kernel.            *
 *                                                                       *
 *************************************************************************/

var system = fx.Module("system", fx.Provide(
	sim.New,
	newInit))

// newInit spawns the init thread.  Its capability space holds the root
// endpoint and every slot minted by the servers it hosts.
func newInit(lx fx.Lifecycle, k *sim.Kernel, c config.Config) *sim.Process {
	proc := k.Spawn("init", sim.WithCSpaceSize(c.CSpaceSize))

	lx.Append(fx.Hook{
		OnStop: func(context.Context) error {
			k.Exit(proc)
			return nil
		},
	})

	return proc
}
