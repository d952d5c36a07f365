package wire

import "testing"

func TestPoolAcquireGrows(t *testing.T) {
	p := NewPool()
	b, err := p.Acquire(100)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if b.Cap() < 100 {
		t.Fatalf("Cap() = %d, want >= 100", b.Cap())
	}
	if b.Cap() != InitialBuf {
		t.Fatalf("Cap() = %d, want InitialBuf %d for small request", b.Cap(), InitialBuf)
	}
}

func TestPoolAcquireRejectsOutOfRange(t *testing.T) {
	p := NewPool()
	if _, err := p.Acquire(0); err == nil {
		t.Fatalf("expected error for minSize 0")
	}
	if _, err := p.Acquire(MaxBuf + 1); err == nil {
		t.Fatalf("expected error for minSize > MaxBuf")
	}
}

func TestPoolReleaseThenAcquireReuses(t *testing.T) {
	p := NewPool()
	b, err := p.Acquire(InitialBuf)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	data := b.Data
	p.Release(b)
	if p.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 after release", p.Size())
	}

	reused, err := p.Acquire(InitialBuf)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if &reused.Data[0] != &data[0] {
		t.Fatalf("expected reused buffer to share backing array")
	}
	if p.Size() != 0 {
		t.Fatalf("Size() = %d, want 0 after reuse", p.Size())
	}
}

func TestPoolReleaseRejectsOutOfBoundsCapacity(t *testing.T) {
	p := NewPool()
	tooSmall := &Buffer{Data: make([]byte, MinBuf/2)}
	p.Release(tooSmall)
	if p.Size() != 0 {
		t.Fatalf("Size() = %d, want 0: undersized buffer must not be pooled", p.Size())
	}

	tooBig := &Buffer{Data: make([]byte, MaxBuf+1)}
	p.Release(tooBig)
	if p.Size() != 0 {
		t.Fatalf("Size() = %d, want 0: oversized buffer must not be pooled", p.Size())
	}
}

func TestPoolNeverExceedsMaxPool(t *testing.T) {
	p := NewPool()
	for i := 0; i < MaxPool+5; i++ {
		b := &Buffer{Data: make([]byte, InitialBuf)}
		p.Release(b)
	}
	if p.Size() > MaxPool {
		t.Fatalf("Size() = %d, want <= MaxPool %d", p.Size(), MaxPool)
	}
}

func TestPoolGrowPreservesPrefix(t *testing.T) {
	p := NewPool()
	b, err := p.Acquire(InitialBuf)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	copy(b.Data, []byte("hello"))
	b.Len = 5

	if err := p.Grow(&b, b.Len, InitialBuf*4); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if b.Cap() < InitialBuf*4 {
		t.Fatalf("Cap() = %d after grow, want >= %d", b.Cap(), InitialBuf*4)
	}
	if string(b.Data[:5]) != "hello" {
		t.Fatalf("prefix not preserved: got %q", b.Data[:5])
	}
}

func TestPoolGrowNoopWhenAlreadyBigEnough(t *testing.T) {
	p := NewPool()
	b, err := p.Acquire(InitialBuf)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	orig := &b.Data[0]
	if err := p.Grow(&b, 0, InitialBuf/2); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if &b.Data[0] != orig {
		t.Fatalf("Grow reallocated when it should have been a no-op")
	}
}

func TestPoolGrowRejectsOverMaxBuf(t *testing.T) {
	p := NewPool()
	var b *Buffer
	if err := p.Grow(&b, 0, MaxBuf+1); err == nil {
		t.Fatalf("expected error growing past MaxBuf")
	}
}
