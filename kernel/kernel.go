//go:generate mockgen -destination=../internal/mock/kernel/kernel.go -package=mock_kernel github.com/wetware/naive/kernel Kernel,Allocator

// Package kernel describes the syscall layer consumed by userland
// services.  It defines capability slots, badges and the results of a
// blocking receive, but implements none of them.  See package sim for
// an in-memory implementation.
package kernel

import (
	"context"
	"fmt"
	"math/bits"
	"strconv"
)

// NotificationBits is the width of a notification word.
const NotificationBits = 64

// Slot names a location in the process-local capability space.
type Slot uint64

// NullSlot is never handed out by an Allocator.  Receiving with NullSlot
// refuses any capability the sender tries to transfer.
const NullSlot Slot = 0

func (s Slot) String() string {
	return "slot(" + strconv.FormatUint(uint64(s), 10) + ")"
}

// Badge is the tag stamped by the kernel on every message sent through
// a minted capability.
type Badge uint64

// NoBadge is reported for messages sent through an unbadged capability.
const NoBadge Badge = 0

func (b Badge) String() string {
	return strconv.FormatUint(uint64(b), 10)
}

// Result is returned by a successful Receive.  It is either a Message or
// a Notification.
type Result interface {
	result()
}

// Message is a synchronous IPC message.
type Message struct {
	Payload   []byte
	Badge     Badge // NoBadge if the sender used an unbadged capability
	NeedReply bool
	Transfer  bool // a capability was installed in the receive slot
}

func (Message) result() {}

// Badged reports whether the message was sent through a minted capability.
func (m Message) Badged() bool {
	return m.Badge != NoBadge
}

func (m Message) Loggable() map[string]interface{} {
	return map[string]interface{}{
		"badge":    m.Badge,
		"size":     len(m.Payload),
		"transfer": m.Transfer,
	}
}

// Notification is a word of coalesced asynchronous signals.  Bit i is
// set if event source i fired at least once since the last receive.
type Notification uint64

func (Notification) result() {}

// Has reports whether bit is set in the notification word.
func (n Notification) Has(bit int) bool {
	return bit >= 0 && bit < NotificationBits && n&(1<<uint(bit)) != 0
}

// Bits returns the set bits in ascending order.
func (n Notification) Bits() []int {
	bs := make([]int, 0, bits.OnesCount64(uint64(n)))
	for mask := uint64(n); mask != 0; mask &= mask - 1 {
		bs = append(bs, bits.TrailingZeros64(mask))
	}

	return bs
}

func (n Notification) String() string {
	return fmt.Sprintf("ntf(%#x)", uint64(n))
}

// Kernel exposes the endpoint syscalls.  Slots are interpreted relative
// to the calling process's capability space.
type Kernel interface {
	// Mint copies the endpoint capability in src into the empty slot dest,
	// stamping it with badge.
	Mint(src, dest Slot, badge Badge) error

	// Receive blocks until a message or a notification arrives on the
	// endpoint referenced by ep.  If the message transfers a capability,
	// it is installed into recv and Message.Transfer is set.
	Receive(ctx context.Context, ep, recv Slot) (Result, error)

	// Send delivers payload to the endpoint referenced by ep, along with
	// copies of the capabilities in caps.
	Send(ctx context.Context, ep Slot, payload []byte, caps ...Slot) error
}

// Allocator hands out free capability slots.
type Allocator interface {
	// Alloc returns an empty slot.  It returns ErrExhausted when the
	// capability space is full.
	Alloc() (Slot, error)

	// Free deletes any capability held in the slot and returns the
	// slot to the free pool.
	Free(Slot) error
}
