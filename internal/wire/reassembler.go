package wire

import (
	"errors"
	"fmt"
)

// ErrCorrupt wraps any condition that leaves the reassembler's internal
// state inconsistent: a declared length outside bounds, a negative
// header/content length after a successful parse, or a buffer slice that
// would underflow. It is always fatal to the owning connection.
var ErrCorrupt = errors.New("wire: reassembler state corrupt")

// Reassembler accumulates bytes from a single connection and emits whole
// JSON-RPC frames as they complete. It is single-owner: never shared
// across goroutines, never blocks.
type Reassembler struct {
	pool *Pool
	buf  *Buffer

	headerParsed bool
	headerLen    int
	contentLen   int
}

// NewReassembler creates a reassembler backed by the given pool, lazily
// acquiring its working buffer on first Append.
func NewReassembler(pool *Pool) *Reassembler {
	return &Reassembler{pool: pool}
}

// Staging returns the buffer a caller should read(2) into, growing it if
// necessary so at least minSize free bytes are available past the
// currently valid prefix. Returns the buffer and the offset at which to
// begin writing.
func (r *Reassembler) Staging(minSize int) (*Buffer, int, error) {
	if r.buf == nil {
		b, err := r.pool.Acquire(InitialBuf)
		if err != nil {
			return nil, 0, err
		}
		r.buf = b
	}
	need := r.buf.Len + minSize
	if need > r.buf.Cap() {
		if err := r.pool.Grow(&r.buf, r.buf.Len, need); err != nil {
			return nil, 0, err
		}
	}
	return r.buf, r.buf.Len, nil
}

// Append records that n bytes were written into the staging buffer
// returned by Staging, advancing the valid-byte count.
func (r *Reassembler) Append(n int) {
	if r.buf == nil || n <= 0 {
		return
	}
	r.buf.Len += n
}

// Extract repeatedly pulls complete frames off the front of the buffer
// until either the buffer is empty or what remains is an incomplete
// frame. Each extracted frame shifts the remaining bytes to the front and
// resets the per-frame header state.
func (r *Reassembler) Extract() ([][]byte, error) {
	var frames [][]byte
	for {
		if r.buf == nil || r.buf.Len == 0 {
			return frames, nil
		}

		if !r.headerParsed {
			contentLen, headerLen, res := TryParseHeader(r.buf.Data, r.buf.Len)
			switch res {
			case HeaderNeedMore:
				return frames, nil
			case HeaderFail:
				return frames, fmt.Errorf("%w: invalid content-length header", ErrCorrupt)
			}
			// TryParseHeader already rejects contentLen > MaxMessage via
			// HeaderFail; a body of exactly MaxMessage is valid and must not
			// be re-rejected here by also counting the header bytes.
			if headerLen < 0 || contentLen < 0 {
				return frames, fmt.Errorf("%w: invalid header or content length", ErrCorrupt)
			}
			r.headerLen = headerLen
			r.contentLen = contentLen
			r.headerParsed = true
		}

		if !IsComplete(r.buf.Len, r.contentLen, r.headerLen) {
			return frames, nil
		}

		body, err := ExtractBody(r.buf.Data, r.contentLen, r.headerLen)
		if err != nil {
			if errors.Is(err, ErrInvalidUTF8) {
				return frames, err
			}
			return frames, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		frames = append(frames, body)

		consumed := r.headerLen + r.contentLen
		remaining := r.buf.Len - consumed
		if remaining < 0 {
			return frames, fmt.Errorf("%w: buffer underflow after extract", ErrCorrupt)
		}
		copy(r.buf.Data, r.buf.Data[consumed:r.buf.Len])
		r.buf.Len = remaining
		r.headerParsed = false
		r.headerLen = 0
		r.contentLen = 0
	}
}

// Close releases the reassembler's buffer back to its pool. Safe to call
// once the owning connection's handler loop has exited.
func (r *Reassembler) Close() {
	if r.buf != nil {
		r.pool.Release(r.buf)
		r.buf = nil
	}
}
