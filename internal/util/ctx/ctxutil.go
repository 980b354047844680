package ctxutil

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
)

// WithLifetime returns a context that expires when the process receives
// SIGINT or SIGTERM.
func WithLifetime(ctx context.Context) context.Context {
	return WithSignals(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// WithSignals returns a context that expires when the process receives any of the
// specified signals.  Err reports the signal.
func WithSignals(ctx context.Context, sigs ...os.Signal) context.Context {
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, sigs...)

	sctx := &sigctx{
		cq:      make(chan struct{}),
		Context: ctx,
	}

	go sctx.wait(sigch)

	return sctx
}

type sigctx struct {
	mu  sync.RWMutex
	err error

	cq chan struct{}
	context.Context
}

func (ctx *sigctx) wait(sigch chan os.Signal) {
	defer close(ctx.cq)
	defer signal.Stop(sigch)

	var err error
	select {
	case sig := <-sigch:
		err = errors.Errorf("signal received: %s", sig)
	case <-ctx.Context.Done():
		err = ctx.Context.Err()
	}

	ctx.mu.Lock()
	ctx.err = err
	ctx.mu.Unlock()
}

func (ctx *sigctx) Done() <-chan struct{} {
	return ctx.cq
}

func (ctx *sigctx) Err() (err error) {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()

	return ctx.err
}
