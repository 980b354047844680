package stream

import (
	"fmt"

	"github.com/wetware/naive/kernel"
)

// Tag is the first payload byte of every message exchanged over an
// established connection.  It selects the direction of the traffic.
type Tag uint8

const (
	// TagData carries bytes from the sender.  The bytes follow the tag.
	TagData Tag = iota

	// TagPoll asks the receiver to push its pending output.
	TagPoll

	// TagClose tears down the connection.
	TagClose
)

func (t Tag) String() string {
	switch t {
	case TagData:
		return "data"
	case TagPoll:
		return "poll"
	case TagClose:
		return "close"
	}

	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Flags advertise a connection's flow-control state to its peer.  They
// are sent as the sole payload byte of the handshake reply.
type Flags uint8

const (
	// FlagSleepOnRead asks the peer to send TagData as soon as it has
	// bytes, rather than buffering them until an explicit flush.
	FlagSleepOnRead Flags = 1 << iota

	// FlagSleepOnWrite promises that a poll which finds no pending
	// output is remembered, and answered when output is written.
	FlagSleepOnWrite
)

func (f Flags) SleepOnRead() bool  { return f&FlagSleepOnRead != 0 }
func (f Flags) SleepOnWrite() bool { return f&FlagSleepOnWrite != 0 }

// maxChunk is the largest data chunk carried by a single TagData message.
const maxChunk = kernel.MaxPayload - 1

func dataMessage(p []byte) []byte {
	return append([]byte{byte(TagData)}, p...)
}
