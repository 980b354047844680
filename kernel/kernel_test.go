package kernel_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wetware/naive/kernel"
)

func TestNotification(t *testing.T) {
	t.Parallel()

	t.Run("Bits", func(t *testing.T) {
		t.Parallel()

		n := kernel.Notification(1<<9 | 1<<2 | 1<<5 | 1<<63)
		assert.Equal(t, []int{2, 5, 9, 63}, n.Bits(),
			"should list set bits in ascending order")
		assert.Empty(t, kernel.Notification(0).Bits(),
			"should report no bits for empty word")
	})

	t.Run("Has", func(t *testing.T) {
		t.Parallel()

		n := kernel.Notification(1 << 29)
		assert.True(t, n.Has(29), "should report bit 29")
		assert.False(t, n.Has(28), "should not report bit 28")
		assert.False(t, n.Has(-1), "should reject negative bit")
		assert.False(t, n.Has(64), "should reject bit 64")
	})
}

func TestMessage(t *testing.T) {
	t.Parallel()

	assert.False(t, kernel.Message{}.Badged(), "zero message should be unbadged")
	assert.True(t, kernel.Message{Badge: 100}.Badged(), "should be badged")
}

func TestSyscallError(t *testing.T) {
	t.Parallel()

	var err error = kernel.SyscallError{
		Op:    "alloc",
		Slot:  kernel.NullSlot,
		Cause: kernel.ErrExhausted,
	}

	assert.ErrorIs(t, err, kernel.ErrExhausted, "should match cause")
	assert.NotErrorIs(t, err, kernel.ErrInvalidCap, "should not match other sentinel")
	assert.Equal(t, "alloc slot(0): cspace exhausted", err.Error())

	var se kernel.SyscallError
	require.True(t, errors.As(err, &se), "should unwrap as SyscallError")
	assert.Equal(t, "alloc", se.Op)
}

func TestEpCap(t *testing.T) {
	t.Parallel()

	assert.False(t, kernel.EpCap{}.IsValid(), "zero value should be invalid")
	assert.Equal(t, "ep:slot(7)", kernel.EpCap{Slot: 7}.String())
}
