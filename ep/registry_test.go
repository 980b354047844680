package ep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wetware/naive/kernel"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("Events", func(t *testing.T) {
		t.Parallel()

		var (
			r registry
			h = MessageHandlerFunc(func(context.Context, *Server, kernel.Message, *Transfer) error {
				return nil
			})
		)

		require.Nil(t, r.event(100), "empty registry should have no handler")

		r.insertEvent(100, h)
		assert.NotNil(t, r.event(100), "should return registered handler")
		assert.Nil(t, r.event(101), "should not return handler for other badge")
		assert.Equal(t, 1, r.len(), "should count handler")

		r.removeEvent(100)
		assert.Nil(t, r.event(100), "should remove handler")
		assert.Zero(t, r.len(), "should be empty")

		r.removeEvent(100) // idempotent
	})

	t.Run("Notifications", func(t *testing.T) {
		t.Parallel()

		var (
			r registry
			h = NotificationHandlerFunc(func(context.Context, *Server, int) error {
				return nil
			})
		)

		r.insertNotification(0, h)
		r.insertNotification(63, h)
		assert.NotNil(t, r.notification(0), "should register bit 0")
		assert.NotNil(t, r.notification(63), "should register bit 63")
		assert.Nil(t, r.notification(1), "bit 1 should be unregistered")

		r.removeNotification(63)
		assert.Nil(t, r.notification(63), "should remove bit 63")
	})

	t.Run("OutOfRange", func(t *testing.T) {
		t.Parallel()

		var r registry
		h := NotificationHandlerFunc(func(context.Context, *Server, int) error {
			return nil
		})

		assert.Panics(t, func() { r.insertNotification(64, h) }, "should panic on bit 64")
		assert.Panics(t, func() { r.insertNotification(-1, h) }, "should panic on negative bit")
		assert.Panics(t, func() { r.removeNotification(64) }, "should panic on bit 64")
	})
}
