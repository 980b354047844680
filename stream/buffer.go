package stream

import (
	"errors"
	"sync"
)

const bufsize = 1 << 12

// ErrInterrupt is returned when a read drains the buffer, or a write
// fills it, before the caller's slice was exhausted.
var ErrInterrupt = errors.New("interrupt")

// buffer is a fixed-size byte ring.
type buffer struct {
	mu   sync.Mutex
	r, w uint32
	buf  [bufsize]byte // must be power of 2
}

func (b *buffer) Read(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range p {
		if b.empty() {
			err = ErrInterrupt // underflow
			break
		}

		n++
		b.r++
		p[i] = b.buf[b.mask(b.r)]
	}

	return
}

func (b *buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, x := range p {
		if b.full() {
			err = ErrInterrupt // overflow
			break
		}

		n++
		b.w++
		b.buf[b.mask(b.w)] = x
	}

	return
}

// Peek copies unread bytes into p without consuming them.
func (b *buffer) Peek(p []byte) (n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for r := b.r; n < len(p) && r != b.w; n++ {
		r++
		p[n] = b.buf[b.mask(r)]
	}

	return
}

// Discard consumes up to n unread bytes.
func (b *buffer) Discard(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if size := int(b.size()); n > size {
		n = size
	}

	b.r += uint32(n)
}

// Len returns the number of unread bytes.
func (b *buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return int(b.size())
}

func (b *buffer) mask(u uint32) uint32 {
	return u & (bufsize - 1)
}

func (b *buffer) empty() bool {
	return b.r == b.w
}

func (b *buffer) full() bool {
	return b.size() == bufsize
}

func (b *buffer) size() uint32 {
	return b.w - b.r
}
