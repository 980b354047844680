package kernel

import "context"

// EpCap is a handle to an endpoint capability.  It carries no state
// besides the slot; all operations are forwarded to the kernel.
type EpCap struct {
	Kernel Kernel
	Slot   Slot
}

// NewEpCap returns a handle for the endpoint capability held in slot.
func NewEpCap(k Kernel, slot Slot) EpCap {
	return EpCap{Kernel: k, Slot: slot}
}

// IsValid reports whether the handle references a slot.
func (c EpCap) IsValid() bool {
	return c.Kernel != nil && c.Slot != NullSlot
}

// Mint a copy of the capability into dest, stamped with badge.
func (c EpCap) Mint(dest Slot, badge Badge) error {
	return c.Kernel.Mint(c.Slot, dest, badge)
}

// Receive blocks on the endpoint.  See Kernel.Receive.
func (c EpCap) Receive(ctx context.Context, recv Slot) (Result, error) {
	return c.Kernel.Receive(ctx, c.Slot, recv)
}

// Send a message through the capability.  See Kernel.Send.
func (c EpCap) Send(ctx context.Context, payload []byte, caps ...Slot) error {
	return c.Kernel.Send(ctx, c.Slot, payload, caps...)
}

func (c EpCap) String() string {
	return "ep:" + c.Slot.String()
}
