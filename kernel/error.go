package kernel

import (
	"errors"
)

var (
	// ErrExhausted is returned when no free slot remains in the
	// capability space.
	ErrExhausted = errors.New("cspace exhausted")

	// ErrInvalidCap is returned when a slot is empty or does not hold
	// a capability of the expected type.
	ErrInvalidCap = errors.New("invalid capability")

	// ErrSlotOccupied is returned when the destination of a mint or a
	// transfer already holds a capability.
	ErrSlotOccupied = errors.New("slot occupied")

	// ErrTruncated is returned when a payload exceeds MaxPayload.
	ErrTruncated = errors.New("payload truncated")
)

// MaxPayload is the largest payload carried by a single message.
const MaxPayload = 1 << 12

// SyscallError reports a failed syscall.
type SyscallError struct {
	Op    string
	Slot  Slot
	Cause error
}

func (e SyscallError) Error() string {
	return e.Op + " " + e.Slot.String() + ": " + e.Cause.Error()
}

func (e SyscallError) Is(err error) bool {
	return errors.Is(e.Cause, err)
}

func (e SyscallError) Unwrap() error {
	return e.Cause
}

func (e SyscallError) Loggable() map[string]interface{} {
	return map[string]interface{}{
		"op":    e.Op,
		"slot":  e.Slot,
		"error": e.Cause,
	}
}
