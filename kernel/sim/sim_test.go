package sim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wetware/naive/kernel"
	"github.com/wetware/naive/kernel/sim"
)

func TestAlloc(t *testing.T) {
	t.Parallel()

	t.Run("Exhaustion", func(t *testing.T) {
		t.Parallel()

		p := sim.New().Spawn("test", sim.WithCSpaceSize(3))

		a, err := p.Alloc()
		require.NoError(t, err, "should allocate first slot")
		assert.NotEqual(t, kernel.NullSlot, a, "should never allocate NullSlot")

		b, err := p.Alloc()
		require.NoError(t, err, "should allocate second slot")
		assert.NotEqual(t, a, b, "should allocate distinct slots")

		_, err = p.Alloc()
		require.ErrorIs(t, err, kernel.ErrExhausted, "should exhaust cspace")
	})

	t.Run("Recycle", func(t *testing.T) {
		t.Parallel()

		p := sim.New().Spawn("test", sim.WithCSpaceSize(2))

		a, err := p.Alloc()
		require.NoError(t, err, "should allocate slot")
		require.NoError(t, p.Free(a), "should free slot")

		b, err := p.Alloc()
		require.NoError(t, err, "should reuse freed slot")
		assert.Equal(t, a, b, "should recycle slot")
	})

	t.Run("DoubleFree", func(t *testing.T) {
		t.Parallel()

		p := sim.New().Spawn("test")

		a, err := p.Alloc()
		require.NoError(t, err, "should allocate slot")
		require.NoError(t, p.Free(a), "should free slot")
		require.ErrorIs(t, p.Free(a), kernel.ErrInvalidCap, "should reject double free")
		require.Zero(t, p.Allocated(), "should have no slots on loan")
	})
}

func TestMint(t *testing.T) {
	t.Parallel()

	p := sim.New().Spawn("test")

	root, err := p.NewEndpoint()
	require.NoError(t, err, "should create endpoint")

	dest, err := p.Alloc()
	require.NoError(t, err, "should allocate slot")

	err = p.Mint(root, dest, 100)
	require.NoError(t, err, "should mint badged capability")

	badge, ok := p.Holds(dest)
	require.True(t, ok, "destination should hold capability")
	assert.Equal(t, kernel.Badge(100), badge, "should carry badge")

	err = p.Mint(root, dest, 101)
	require.ErrorIs(t, err, kernel.ErrSlotOccupied, "should reject occupied destination")

	other, err := p.Alloc()
	require.NoError(t, err, "should allocate slot")

	err = p.Mint(dest, other, 102)
	require.ErrorIs(t, err, kernel.ErrInvalidCap, "should not re-badge a badged capability")

	err = p.Mint(other, root, 103)
	require.ErrorIs(t, err, kernel.ErrInvalidCap, "should reject empty source")
}

func TestSendReceive(t *testing.T) {
	t.Parallel()

	t.Run("Badge", func(t *testing.T) {
		t.Parallel()

		p := sim.New().Spawn("test")
		root, badged := endpoint(t, p, 100)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		require.NoError(t, p.Send(ctx, badged, []byte("hello")), "should send")
		require.NoError(t, p.Send(ctx, root, []byte("world")), "should send")

		res, err := p.Receive(ctx, root, kernel.NullSlot)
		require.NoError(t, err, "should receive")
		require.IsType(t, kernel.Message{}, res, "should receive message")
		assert.Equal(t, kernel.Badge(100), res.(kernel.Message).Badge, "should stamp badge")
		assert.Equal(t, "hello", string(res.(kernel.Message).Payload), "should preserve FIFO order")

		res, err = p.Receive(ctx, root, kernel.NullSlot)
		require.NoError(t, err, "should receive")
		assert.False(t, res.(kernel.Message).Badged(), "should be unbadged")
	})

	t.Run("Truncated", func(t *testing.T) {
		t.Parallel()

		p := sim.New().Spawn("test")
		root, _ := endpoint(t, p, 100)

		err := p.Send(context.Background(), root, make([]byte, kernel.MaxPayload+1))
		require.ErrorIs(t, err, kernel.ErrTruncated, "should reject oversized payload")
	})

	t.Run("Transfer", func(t *testing.T) {
		t.Parallel()

		p := sim.New().Spawn("test")
		root, badged := endpoint(t, p, 100)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		recv, err := p.Alloc()
		require.NoError(t, err, "should allocate receive slot")

		require.NoError(t, p.Send(ctx, root, nil, badged), "should send with capability")
		require.NoError(t, p.Free(badged), "should free sender's copy")

		res, err := p.Receive(ctx, root, recv)
		require.NoError(t, err, "should receive")
		assert.True(t, res.(kernel.Message).Transfer, "should report transfer")

		badge, ok := p.Holds(recv)
		require.True(t, ok, "receive slot should hold capability")
		assert.Equal(t, kernel.Badge(100), badge, "should copy capability at send time")
	})

	t.Run("NullSlot", func(t *testing.T) {
		t.Parallel()

		p := sim.New().Spawn("test")
		root, badged := endpoint(t, p, 100)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		require.NoError(t, p.Send(ctx, root, nil, badged), "should send with capability")

		res, err := p.Receive(ctx, root, kernel.NullSlot)
		require.NoError(t, err, "should receive")
		assert.False(t, res.(kernel.Message).Transfer, "should drop capability")
	})

	t.Run("Blocking", func(t *testing.T) {
		t.Parallel()

		p := sim.New().Spawn("test")
		root, _ := endpoint(t, p, 100)

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*10)
		defer cancel()

		_, err := p.Receive(ctx, root, kernel.NullSlot)
		require.ErrorIs(t, err, context.DeadlineExceeded, "should block until context expires")
	})

	t.Run("CrossProcess", func(t *testing.T) {
		t.Parallel()

		k := sim.New()
		server := k.Spawn("server")
		client := k.Spawn("client")
		root, badged := endpoint(t, server, 100)

		slot, err := k.Grant(server, badged, client)
		require.NoError(t, err, "should grant capability")

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		require.NoError(t, client.Send(ctx, slot, []byte("ping")), "should send")

		res, err := server.Receive(ctx, root, kernel.NullSlot)
		require.NoError(t, err, "should receive")
		assert.Equal(t, kernel.Badge(100), res.(kernel.Message).Badge, "should preserve badge across grant")
	})
}

func TestNotify(t *testing.T) {
	t.Parallel()

	p := sim.New().Spawn("test")
	root, badged := endpoint(t, p, 100)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.Send(ctx, badged, []byte("msg")), "should send")
	require.NoError(t, p.Notify(root, 1<<2), "should notify")
	require.NoError(t, p.Notify(root, 1<<5), "should notify")

	res, err := p.Receive(ctx, root, kernel.NullSlot)
	require.NoError(t, err, "should receive")
	require.IsType(t, kernel.Notification(0), res, "should deliver notification first")
	assert.Equal(t, []int{2, 5}, res.(kernel.Notification).Bits(), "should coalesce bits")

	res, err = p.Receive(ctx, root, kernel.NullSlot)
	require.NoError(t, err, "should receive")
	require.IsType(t, kernel.Message{}, res, "should deliver queued message")

	n, err := p.Pending(root)
	require.NoError(t, err, "should report pending messages")
	assert.Zero(t, n, "queue should be empty")
}

func TestExit(t *testing.T) {
	t.Parallel()

	k := sim.New()
	p := k.Spawn("test")
	_, _ = endpoint(t, p, 100)
	require.Equal(t, 1, k.Procs(), "should track process")

	k.Exit(p)
	assert.Zero(t, k.Procs(), "should remove process")
	assert.Zero(t, p.Allocated(), "should tear down cspace")
}

func endpoint(t *testing.T, p *sim.Process, badge kernel.Badge) (root, badged kernel.Slot) {
	t.Helper()

	root, err := p.NewEndpoint()
	require.NoError(t, err, "should create endpoint")

	badged, err = p.Alloc()
	require.NoError(t, err, "should allocate slot")
	require.NoError(t, p.Mint(root, badged, badge), "should mint")

	return
}
