package wire

import (
	"fmt"
	"sync"
)

// MaxPool is the cap on spare buffers held by a Pool. Release checks and
// appends under the pool's mutex, so the count never exceeds it.
const MaxPool = 10

// Buffer is an owning handle to a reusable byte slice. Len is the number
// of valid bytes; cap(Data) is its capacity.
type Buffer struct {
	Data []byte
	Len  int
}

// Cap returns the buffer's capacity.
func (b *Buffer) Cap() int {
	if b == nil {
		return 0
	}
	return cap(b.Data)
}

// Pool amortizes allocation of read/write working buffers across
// connections sharing one bridge.Server instance. Safe for concurrent
// Acquire/Release; never shared across two bridge instances.
type Pool struct {
	mu    sync.Mutex
	spare [][]byte
}

// NewPool creates an empty buffer pool.
func NewPool() *Pool {
	return &Pool{}
}

// Acquire returns a buffer with capacity >= minSize. It first tries to
// reuse a spare buffer from the pool; otherwise it allocates fresh,
// starting at InitialBuf and doubling until minSize is met.
func (p *Pool) Acquire(minSize int) (*Buffer, error) {
	if minSize <= 0 || minSize > MaxBuf {
		return nil, fmt.Errorf("wire: acquire size %d out of range (0, %d]", minSize, MaxBuf)
	}

	p.mu.Lock()
	for i, spare := range p.spare {
		if cap(spare) >= minSize {
			p.spare = append(p.spare[:i], p.spare[i+1:]...)
			p.mu.Unlock()
			return &Buffer{Data: spare[:cap(spare)]}, nil
		}
	}
	p.mu.Unlock()

	size := InitialBuf
	for size < minSize {
		size *= 2
	}
	if size > MaxBuf {
		size = MaxBuf
	}
	return &Buffer{Data: make([]byte, size)}, nil
}

// Release returns a buffer to the pool. Buffers outside [MinBuf, MaxBuf]
// capacity, or offered once the pool is already at MaxPool, are silently
// discarded (left for the garbage collector).
func (p *Pool) Release(b *Buffer) {
	if b == nil {
		return
	}
	c := cap(b.Data)
	if c < MinBuf || c > MaxBuf {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.spare) >= MaxPool {
		return
	}
	p.spare = append(p.spare, b.Data)
}

// Grow replaces *handle with a buffer of capacity >= newMinSize,
// preserving the first prefixLen bytes of the old buffer's data. The old
// buffer is released back to the pool. Fails without modifying *handle if
// newMinSize exceeds MaxBuf.
func (p *Pool) Grow(handle **Buffer, prefixLen, newMinSize int) error {
	if newMinSize > MaxBuf {
		return fmt.Errorf("wire: grow target %d exceeds MaxBuf %d", newMinSize, MaxBuf)
	}

	old := *handle
	if old != nil && old.Cap() >= newMinSize {
		return nil
	}

	fresh, err := p.Acquire(newMinSize)
	if err != nil {
		return err
	}
	if old != nil && prefixLen > 0 {
		copy(fresh.Data, old.Data[:prefixLen])
		fresh.Len = prefixLen
	}

	*handle = fresh
	if old != nil {
		p.Release(old)
	}
	return nil
}

// Size reports how many spare buffers the pool is currently holding.
// Exposed for tests verifying the MaxPool invariant.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.spare)
}
