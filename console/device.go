package console

// Pipe is a Device fed by a channel.  Writers push bytes into the
// channel, then raise the device's interrupt.
type Pipe chan byte

func (p Pipe) TryReadByte() (byte, bool) {
	select {
	case b := <-p:
		return b, true
	default:
		return 0, false
	}
}
