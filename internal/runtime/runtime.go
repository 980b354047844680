package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lthibault/log"
	"github.com/thejerf/suture/v4"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/wetware/naive"
	"github.com/wetware/naive/console"
	"github.com/wetware/naive/ep"
	"github.com/wetware/naive/internal/config"
	logutil "github.com/wetware/naive/internal/util/log"
	serviceutil "github.com/wetware/naive/internal/util/service"
	statsdutil "github.com/wetware/naive/internal/util/statsd"
	"github.com/wetware/naive/kernel/sim"
	"github.com/wetware/naive/stream"
)

/****************************************************************************
 *                                                                          *
 *  runtime.go is responsible for managing the lifetimes of services.       *
 *                                                                          *
 ****************************************************************************/

// Env is the command-line environment of the init thread.
type Env interface {
	Log() log.Logger
	Metrics() naive.Metrics

	config.Flags
	String(string) string
}

func Serve(c *cli.Context) error {
	var app = fx.New(fx.NopLogger,
		fx.Supply(c),
		fx.Provide(
			newEnv,
			loadConfig,
			supervisor),
		system,
		services,
		fx.Invoke(bind))

	if err := start(c, app); err != nil {
		return err
	}

	<-app.Done()

	return shutdown(app)
}

func start(c *cli.Context, app *fx.App) error {
	ctx, cancel := context.WithTimeout(c.Context, time.Second*15)
	defer cancel()

	return app.Start(ctx)
}

func shutdown(app *fx.App) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()

	if err = app.Stop(ctx); err == context.Canceled {
		err = nil
	}

	return
}

// Services declares dependencies that are dynamically resolved at
// runtime.
type Services struct {
	fx.In

	Lifecycle fx.Lifecycle

	Env        Env
	Config     config.Config
	Kernel     *sim.Kernel
	Init       *sim.Process
	Server     *ep.Server
	Console    *console.Console
	UART       console.Pipe
	Mux        *stream.Mux
	Supervisor *suture.Supervisor
}

func (s Services) Log() log.Logger {
	return s.Env.Log().WithField("server", s.Server.String())
}

func bind(c *cli.Context, s Services) error {
	irq, err := attachIRQ(s)
	if err != nil {
		return err
	}

	s.Supervisor.Add(s.Server)
	s.Supervisor.Add(&uart{
		log:  s.Log(),
		in:   c.App.Reader,
		dev:  s.UART,
		proc: s.Init,
		irq:  irq,
		line: s.Config.IRQ,
	})

	if s.Config.Shell {
		sh, err := spawnShell(s)
		if err != nil {
			return err
		}

		s.Supervisor.Add(sh)
	}

	ctx, cancel := context.WithCancel(c.Context) // cancelled by stop hook
	var cherr <-chan error

	s.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			cherr = s.Supervisor.ServeBackground(ctx) // NOTE: application context

			s.Log().
				WithField("listener", s.Mux.Badge()).
				Info("init thread started")

			return nil
		},
		OnStop: func(ctx context.Context) (err error) {
			cancel()

			// Wait for the supervisor to stop the dispatch loop before
			// tearing down the connections it serves.
			select {
			case err = <-cherr:
				if errors.Is(err, context.Canceled) {
					err = nil
				}

			case <-ctx.Done():
				err = fmt.Errorf("shutdown: %w", ctx.Err())
			}

			return multierr.Append(err, s.Mux.Close())
		},
	})

	return nil
}

func newEnv(c *cli.Context) Env {
	logging := logutil.New(c)

	return env{
		Context: c,
		logging: logging,
		metrics: statsdutil.New(c, logging),
	}
}

type env struct {
	*cli.Context
	logging log.Logger
	metrics naive.Metrics
}

func (env env) Log() log.Logger {
	return env.logging
}

func (env env) Metrics() naive.Metrics {
	return env.metrics
}

func loadConfig(env Env) (config.Config, error) {
	return config.Resolve(env)
}

func supervisor(env Env, c *cli.Context) *suture.Supervisor {
	return serviceutil.New("init", env.Log(), c.App.ErrWriter)
}
