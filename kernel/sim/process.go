package sim

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wetware/naive/kernel"
)

var (
	_ kernel.Kernel    = (*Process)(nil)
	_ kernel.Allocator = (*Process)(nil)
)

// Process is a simulated address space.  Its capability space satisfies
// both kernel.Kernel and kernel.Allocator.
type Process struct {
	id   uuid.UUID
	name string
	size int

	mu    sync.Mutex
	slots map[kernel.Slot]capability
	alloc map[kernel.Slot]struct{}
	free  []kernel.Slot
	next  kernel.Slot
}

// NewEndpoint creates an endpoint object and returns the slot holding
// its unbadged capability.
func (p *Process) NewEndpoint() (kernel.Slot, error) {
	slot, err := p.Alloc()
	if err != nil {
		return kernel.NullSlot, err
	}

	if err = p.install(slot, capability{obj: newEndpoint()}); err != nil {
		p.Free(slot)
		return kernel.NullSlot, err
	}

	return slot, nil
}

// Alloc returns an empty slot.  Freed slots are recycled before fresh
// ones are handed out.
func (p *Process) Alloc() (kernel.Slot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var slot kernel.Slot
	switch {
	case len(p.free) > 0:
		slot, p.free = p.free[len(p.free)-1], p.free[:len(p.free)-1]

	case int(p.next) < p.size:
		slot = p.next
		p.next++

	default:
		return kernel.NullSlot, syscallError("alloc", kernel.NullSlot, kernel.ErrExhausted)
	}

	p.alloc[slot] = struct{}{}
	return slot, nil
}

// Free deletes the capability held in slot, if any, and returns the slot
// to the free pool.
func (p *Process) Free(slot kernel.Slot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.alloc[slot]; !ok {
		return syscallError("free", slot, kernel.ErrInvalidCap)
	}

	delete(p.alloc, slot)
	delete(p.slots, slot)
	p.free = append(p.free, slot)
	return nil
}

// Allocated returns the number of slots currently on loan.
func (p *Process) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.alloc)
}

// Holds reports whether slot contains a capability, and its badge.
func (p *Process) Holds(slot kernel.Slot) (kernel.Badge, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.slots[slot]
	return c.badge, ok
}

// Pending returns the number of messages queued on the endpoint.
func (p *Process) Pending(ep kernel.Slot) (int, error) {
	c, err := p.lookup("pending", ep)
	if err != nil {
		return 0, err
	}

	return c.obj.pending(), nil
}

// Notify sets bits in the notification word of the endpoint referenced
// by ep.  This is how interrupt sources signal their handlers.
func (p *Process) Notify(ep kernel.Slot, bits uint64) error {
	c, err := p.lookup("notify", ep)
	if err != nil {
		return err
	}

	c.obj.signal(bits)
	return nil
}

// Mint copies the unbadged endpoint capability in src into dest.
func (p *Process) Mint(src, dest kernel.Slot, badge kernel.Badge) error {
	c, err := p.lookup("mint", src)
	if err != nil {
		return err
	}

	// badged capabilities cannot be re-badged
	if c.badge != kernel.NoBadge {
		return syscallError("mint", src, kernel.ErrInvalidCap)
	}

	c.badge = badge
	return p.install(dest, c)
}

// Send enqueues payload on the endpoint.  Capabilities are copied at
// send time, so the sender may free its slots as soon as Send returns.
func (p *Process) Send(ctx context.Context, ep kernel.Slot, payload []byte, caps ...kernel.Slot) error {
	if len(payload) > kernel.MaxPayload {
		return syscallError("send", ep, kernel.ErrTruncated)
	}

	c, err := p.lookup("send", ep)
	if err != nil {
		return err
	}

	env := envelope{
		payload: append([]byte(nil), payload...),
		badge:   c.badge,
	}

	for _, slot := range caps {
		cc, err := p.lookup("send", slot)
		if err != nil {
			return err
		}
		env.caps = append(env.caps, cc)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.obj.push(env)
	return nil
}

// Receive blocks until a notification or message is available on ep.
func (p *Process) Receive(ctx context.Context, ep, recv kernel.Slot) (kernel.Result, error) {
	c, err := p.lookup("receive", ep)
	if err != nil {
		return nil, err
	}

	for {
		if ntf, env, ok := c.obj.poll(); ok {
			if ntf != 0 {
				return kernel.Notification(ntf), nil
			}

			return p.deliver(env, recv), nil
		}

		select {
		case <-c.obj.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// deliver installs the first transferred capability into recv.  The
// capability is dropped if recv is NullSlot or already occupied.
func (p *Process) deliver(env envelope, recv kernel.Slot) kernel.Message {
	msg := kernel.Message{
		Payload: env.payload,
		Badge:   env.badge,
	}

	if len(env.caps) > 0 && recv != kernel.NullSlot {
		msg.Transfer = p.install(recv, env.caps[0]) == nil
	}

	return msg
}

func (p *Process) lookup(op string, slot kernel.Slot) (capability, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.slots[slot]
	if !ok {
		return capability{}, syscallError(op, slot, kernel.ErrInvalidCap)
	}

	return c, nil
}

func (p *Process) install(slot kernel.Slot, c capability) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.alloc[slot]; !ok {
		return syscallError("install", slot, kernel.ErrInvalidCap)
	}

	if _, ok := p.slots[slot]; ok {
		return syscallError("install", slot, kernel.ErrSlotOccupied)
	}

	p.slots[slot] = c
	return nil
}
