package sim

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/wetware/naive/kernel"
)

type envelope struct {
	payload []byte
	badge   kernel.Badge
	caps    []capability
}

// endpoint is a rendezvous object.  Messages are queued in FIFO order;
// notifications coalesce into a single word.
type endpoint struct {
	mu    sync.Mutex
	queue *queue.Queue
	ntf   uint64
	ready chan struct{}
}

func newEndpoint() *endpoint {
	return &endpoint{
		queue: queue.New(),
		ready: make(chan struct{}, 1),
	}
}

func (e *endpoint) push(env envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue.Add(env)
	e.wake()
}

func (e *endpoint) signal(bits uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ntf |= bits
	e.wake()
}

// poll returns a pending notification word, or else the oldest queued
// message.  Notifications take priority.
func (e *endpoint) poll() (ntf uint64, env envelope, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.ntf != 0:
		ntf, e.ntf, ok = e.ntf, 0, true

	case e.queue.Length() > 0:
		env, ok = e.queue.Remove().(envelope), true
	}

	// more work pending?  pass the token to the next receiver.
	if e.ntf != 0 || e.queue.Length() > 0 {
		e.wake()
	}

	return
}

// wake a blocked receiver.  Caller MUST hold mu.
func (e *endpoint) wake() {
	select {
	case e.ready <- struct{}{}:
	default:
	}
}

func (e *endpoint) pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.queue.Length()
}
