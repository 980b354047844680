package ep

import "github.com/wetware/naive/kernel"

// Transfer holds a capability that was transferred into the receive slot.
// Ownership of the slot passes to the handler only if it calls Take.
type Transfer struct {
	slot  kernel.Slot
	taken bool
}

// Slot holding the transferred capability.  The slot MUST NOT be used
// after the handler returns, unless Take was called.
func (t *Transfer) Slot() kernel.Slot {
	if t == nil {
		return kernel.NullSlot
	}

	return t.slot
}

// Take ownership of the slot.  The caller becomes responsible for
// freeing it.
func (t *Transfer) Take() kernel.Slot {
	if t == nil {
		return kernel.NullSlot
	}

	t.taken = true
	return t.slot
}

// Taken reports whether Take was called.
func (t *Transfer) Taken() bool {
	return t != nil && t.taken
}
