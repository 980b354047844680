package ep

import (
	"fmt"
	"sync"

	"github.com/wetware/naive/kernel"
)

// registry maps badges to message handlers, and notification bits to
// notification handlers.  Each table has its own lock, which is held
// only for the duration of the table operation.  Lookups return the
// handler by value, so that callers invoke it without holding the lock.
type registry struct {
	mu     sync.Mutex
	events map[kernel.Badge]MessageHandler

	ntfMu sync.Mutex
	ntf   [kernel.NotificationBits]NotificationHandler
}

func (r *registry) insertEvent(badge kernel.Badge, h MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.events == nil {
		r.events = make(map[kernel.Badge]MessageHandler)
	}

	r.events[badge] = h
}

func (r *registry) removeEvent(badge kernel.Badge) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.events, badge)
}

func (r *registry) event(badge kernel.Badge) MessageHandler {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.events[badge]
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

func (r *registry) insertNotification(bit int, h NotificationHandler) {
	mustBit(bit)

	r.ntfMu.Lock()
	defer r.ntfMu.Unlock()

	r.ntf[bit] = h
}

func (r *registry) removeNotification(bit int) {
	mustBit(bit)

	r.ntfMu.Lock()
	defer r.ntfMu.Unlock()

	r.ntf[bit] = nil
}

func (r *registry) notification(bit int) NotificationHandler {
	r.ntfMu.Lock()
	defer r.ntfMu.Unlock()

	return r.ntf[bit]
}

func mustBit(bit int) {
	if bit < 0 || bit >= kernel.NotificationBits {
		panic(fmt.Sprintf("notification bit %d out of range [0, %d)",
			bit, kernel.NotificationBits))
	}
}
