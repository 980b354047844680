package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {
	t.Parallel()

	t.Run("ReadWrite", func(t *testing.T) {
		t.Parallel()

		const greeting = "Hello, Buffer!"

		var b buffer
		n, err := b.Write([]byte(greeting))
		require.NoError(t, err, "should write message without error")
		assert.Equal(t, len(greeting), n, "should write full message")
		assert.Equal(t, len(greeting), b.Len(), "should report buffered bytes")

		p := make([]byte, 64)
		n, err = b.Read(p)
		require.ErrorIs(t, err, ErrInterrupt, "short read should return interrupt")
		assert.Equal(t, greeting, string(p[:n]), "should read full message")
		assert.Zero(t, b.Len(), "should be drained")
	})

	t.Run("PeekDiscard", func(t *testing.T) {
		t.Parallel()

		var b buffer
		b.Write([]byte("abcdef"))

		p := make([]byte, 4)
		n := b.Peek(p)
		assert.Equal(t, "abcd", string(p[:n]), "should copy unread bytes")
		assert.Equal(t, 6, b.Len(), "peek should not consume")

		b.Discard(4)
		n = b.Peek(p)
		assert.Equal(t, "ef", string(p[:n]), "should resume after discarded bytes")

		b.Discard(10)
		assert.Zero(t, b.Len(), "should not discard past the write cursor")
	})

	t.Run("Overflow", func(t *testing.T) {
		t.Parallel()

		var b buffer
		n, err := b.Write(make([]byte, bufsize+1))
		require.ErrorIs(t, err, ErrInterrupt, "should report overflow")
		assert.Equal(t, bufsize, n, "should fill the buffer")
	})

	t.Run("Wrap", func(t *testing.T) {
		t.Parallel()

		var b buffer
		p := make([]byte, bufsize-1)
		for i := 0; i < 3; i++ {
			_, err := b.Write(p)
			require.NoError(t, err, "should write")

			n, err := b.Read(p)
			require.NoError(t, err, "should read")
			require.Equal(t, len(p), n, "should read everything")
		}

		_, err := b.Write([]byte("wrapped"))
		require.NoError(t, err, "should write across the boundary")

		out := make([]byte, 7)
		_, err = b.Read(out)
		require.NoError(t, err, "should read across the boundary")
		assert.Equal(t, "wrapped", string(out))
	})
}
