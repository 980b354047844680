package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wetware/naive/kernel"
	"github.com/wetware/naive/kernel/sim"
	"github.com/wetware/naive/stream"
)

func TestDialMalformedReply(t *testing.T) {
	t.Parallel()

	k := sim.New()
	server := k.Spawn("server")
	client := k.Spawn("client")

	root, err := server.NewEndpoint()
	require.NoError(t, err, "should create listener endpoint")

	listener, err := server.Alloc()
	require.NoError(t, err, "should allocate slot")
	require.NoError(t, server.Mint(root, listener, 100), "should mint listener badge")

	connector, err := k.Grant(server, listener, client)
	require.NoError(t, err, "should grant connector")

	self, err := client.NewEndpoint()
	require.NoError(t, err, "should create client endpoint")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// impostor replies without transferring a connection capability
	go func() {
		recv, err := server.Alloc()
		if err != nil {
			return
		}

		res, err := server.Receive(ctx, root, recv)
		if err != nil {
			return
		}

		if msg, ok := res.(kernel.Message); ok && msg.Transfer {
			server.Send(ctx, recv, []byte{0xff, 0xff})
		}
	}()

	before := client.Allocated()
	_, err = stream.Dial(ctx, client,
		kernel.NewEpCap(client, self),
		kernel.NewEpCap(client, connector))
	require.ErrorIs(t, err, stream.ErrHandshake, "should reject malformed reply")
	assert.Equal(t, before, client.Allocated(), "should release the receive slot")
}

func TestFlags(t *testing.T) {
	t.Parallel()

	f := stream.FlagSleepOnRead | stream.FlagSleepOnWrite
	assert.True(t, f.SleepOnRead())
	assert.True(t, f.SleepOnWrite())
	assert.False(t, stream.Flags(0).SleepOnRead())
	assert.Equal(t, "close", stream.TagClose.String())
	assert.Equal(t, "tag(7)", stream.Tag(7).String())
}
