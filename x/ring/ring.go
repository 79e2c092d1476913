// Package ring is a single-producer, single-consumer byte ring. One
// goroutine may write while another reads without locking. The edge
// channels are wake-up hints only: a waiter must re-check the ring and
// should not block on them without a timeout.
package ring

import "sync/atomic"

// Ring is a power-of-two sized byte FIFO.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	readable chan struct{} // signalled on empty -> non-empty
	writable chan struct{} // signalled on full -> not full
}

// New returns a ring of size bytes. size must be a power of two >= 2.
func New(size int) *Ring {
	if size < 2 || size&(size-1) != 0 {
		panic("ring: size must be a power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func (r *Ring) Cap() int { return len(r.buf) }

// Len is the number of bytes waiting to be read.
func (r *Ring) Len() int { return int(r.wr.Load() - r.rd.Load()) }

// Space is the number of bytes that can be written without loss.
func (r *Ring) Space() int { return len(r.buf) - r.Len() }

func signal(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}

// Write copies as much of p as fits and returns the count. Producer side
// only.
func (r *Ring) Write(p []byte) int {
	rd, wr := r.rd.Load(), r.wr.Load()
	used := wr - rd
	n := len(r.buf) - int(used)
	if n > len(p) {
		n = len(p)
	}
	if n <= 0 {
		return 0
	}
	at := wr & r.mask
	first := copy(r.buf[at:], p[:n])
	copy(r.buf, p[first:n])
	r.wr.Store(wr + uint32(n))
	if used == 0 {
		signal(r.readable)
	}
	return n
}

// WriteByte stores c, or reports false when the ring is full.
func (r *Ring) WriteByte(c byte) bool {
	return r.Write([]byte{c}) == 1
}

// Read copies up to len(p) waiting bytes into p. Consumer side only.
func (r *Ring) Read(p []byte) int {
	rd, wr := r.rd.Load(), r.wr.Load()
	n := int(wr - rd)
	if n > len(p) {
		n = len(p)
	}
	if n <= 0 {
		return 0
	}
	at := rd & r.mask
	first := copy(p[:n], r.buf[at:])
	copy(p[first:n], r.buf)
	r.rd.Store(rd + uint32(n))
	if int(wr-rd) == len(r.buf) {
		signal(r.writable)
	}
	return n
}

// ReadByte takes one byte, or reports false when the ring is empty.
func (r *Ring) ReadByte() (byte, bool) {
	var b [1]byte
	if r.Read(b[:]) == 0 {
		return 0, false
	}
	return b[0], true
}

// Readable is signalled when the ring goes from empty to non-empty.
func (r *Ring) Readable() <-chan struct{} { return r.readable }

// Writable is signalled when the ring goes from full to not full.
func (r *Ring) Writable() <-chan struct{} { return r.writable }
