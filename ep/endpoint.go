package ep

import (
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/wetware/naive/kernel"
)

// DefaultBadgeBase is the first badge minted by an Endpoint.  Smaller
// values are reserved for other addressing schemes, notably the 64
// notification bits.
const DefaultBadgeBase kernel.Badge = 100

// Endpoint wraps the unbadged root capability of a service endpoint,
// and derives badged copies of it.  Badges are never reused for the
// lifetime of the Endpoint.
type Endpoint struct {
	root  kernel.EpCap
	alloc kernel.Allocator
	next  *atomic.Uint64
}

// FromUnbadged returns an Endpoint that mints badges starting at base.
// A base of zero is promoted to one, since NoBadge is never minted.
func FromUnbadged(root kernel.EpCap, alloc kernel.Allocator, base kernel.Badge) *Endpoint {
	if base == kernel.NoBadge {
		base++
	}

	return &Endpoint{
		root:  root,
		alloc: alloc,
		next:  atomic.NewUint64(uint64(base)),
	}
}

// Cap returns the unbadged root capability.
func (e *Endpoint) Cap() kernel.EpCap {
	return e.root
}

// DeriveBadgedCap allocates a slot and mints a copy of the root capability
// into it, stamped with a fresh badge.  On failure, the slot is returned
// to the allocator and the badge is burned.
func (e *Endpoint) DeriveBadgedCap() (kernel.Badge, kernel.EpCap, error) {
	slot, err := e.alloc.Alloc()
	if err != nil {
		return kernel.NoBadge, kernel.EpCap{}, fmt.Errorf("alloc badged slot: %w", err)
	}

	badge := kernel.Badge(e.next.Inc() - 1)
	if err = e.root.Mint(slot, badge); err != nil {
		return kernel.NoBadge, kernel.EpCap{}, multierr.Append(
			fmt.Errorf("mint badge %s: %w", badge, err),
			e.alloc.Free(slot))
	}

	return badge, kernel.NewEpCap(e.root.Kernel, slot), nil
}
