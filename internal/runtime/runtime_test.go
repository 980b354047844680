package runtime

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lthibault/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx/fxtest"

	"github.com/wetware/naive"
	"github.com/wetware/naive/console"
	"github.com/wetware/naive/internal/config"
	serviceutil "github.com/wetware/naive/internal/util/service"
	"github.com/wetware/naive/kernel/sim"
)

func TestEcho(t *testing.T) {
	t.Parallel()

	var (
		env = testEnv{}
		cfg = config.Default()
		lc  = fxtest.NewLifecycle(t)
		out = new(lockedBuffer)
	)

	k := sim.New()
	proc := newInit(lc, k, cfg)

	srv, err := newServer(env, cfg, proc)
	require.NoError(t, err, "should create server")

	uart := newUART(cfg)
	cons := console.New(uart, out, console.WithLogger(env.Log()))

	mux, err := newMux(srv, cons)
	require.NoError(t, err, "should listen")

	c := cli.NewContext(&cli.App{Reader: strings.NewReader("hi\n")}, nil, nil)
	c.Context = context.Background()

	err = bind(c, Services{
		Lifecycle:  lc,
		Env:        env,
		Config:     cfg,
		Kernel:     k,
		Init:       proc,
		Server:     srv,
		Console:    cons,
		UART:       uart,
		Mux:        mux,
		Supervisor: serviceutil.New("test", env.Log(), io.Discard),
	})
	require.NoError(t, err, "should bind services")
	assert.Equal(t, 2, k.Procs(), "should spawn shell")

	lc.RequireStart()

	assert.Eventually(t, func() bool {
		return out.String() == "hi\n"
	}, time.Second*5, time.Millisecond*10, "shell should echo console input")

	lc.RequireStop()
	assert.Zero(t, mux.Conns(), "should release connections")
}

type testEnv struct{}

func (testEnv) Log() log.Logger        { return log.New(log.WithLevel(log.FatalLevel)) }
func (testEnv) Metrics() naive.Metrics { return naive.NopMetrics{} }

func (testEnv) IsSet(string) bool    { return false }
func (testEnv) String(string) string { return "" }
func (testEnv) Path(string) string   { return "" }
func (testEnv) Uint64(string) uint64 { return 0 }
func (testEnv) Int(string) int       { return 0 }
func (testEnv) Bool(string) bool     { return false }

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
