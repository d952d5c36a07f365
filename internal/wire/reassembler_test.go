package wire

import (
	"errors"
	"testing"
)

// feed pushes chunk into the reassembler's staging buffer and returns any
// frames it completes.
func feed(t *testing.T, r *Reassembler, chunk []byte) [][]byte {
	t.Helper()
	staging, offset, err := r.Staging(len(chunk))
	if err != nil {
		t.Fatalf("Staging: %v", err)
	}
	n := copy(staging.Data[offset:], chunk)
	r.Append(n)
	frames, err := r.Extract()
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return frames
}

func TestReassemblerSingleFrameWholeChunk(t *testing.T) {
	r := NewReassembler(NewPool())
	msg := Encode([]byte(`{"id":1}`))
	frames := feed(t, r, msg)
	if len(frames) != 1 || string(frames[0]) != `{"id":1}` {
		t.Fatalf("frames = %v, want one frame %q", frames, `{"id":1}`)
	}
}

func TestReassemblerMultipleFramesInOneChunk(t *testing.T) {
	r := NewReassembler(NewPool())
	var stream []byte
	want := []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}
	for _, s := range want {
		stream = append(stream, Encode([]byte(s))...)
	}
	frames := feed(t, r, stream)
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d", len(frames), len(want))
	}
	for i, f := range frames {
		if string(f) != want[i] {
			t.Fatalf("frame %d = %q, want %q", i, f, want[i])
		}
	}
}

func TestReassemblerSingleByteChunks(t *testing.T) {
	r := NewReassembler(NewPool())
	want := []string{`{"first":true}`, `{"second":false}`}
	var stream []byte
	for _, s := range want {
		stream = append(stream, Encode([]byte(s))...)
	}

	var got [][]byte
	for i := 0; i < len(stream); i++ {
		got = append(got, feed(t, r, stream[i:i+1])...)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i, f := range got {
		if string(f) != want[i] {
			t.Fatalf("frame %d = %q, want %q", i, f, want[i])
		}
	}
}

func TestReassemblerArbitraryChunkSizes(t *testing.T) {
	r := NewReassembler(NewPool())
	want := []string{`{"x":1}`, `{"y":"abc"}`, `{}`, `{"z":[1,2,3]}`}
	var stream []byte
	for _, s := range want {
		stream = append(stream, Encode([]byte(s))...)
	}

	chunkSizes := []int{3, 7, 1, 11, 2, 50}
	var got [][]byte
	pos := 0
	ci := 0
	for pos < len(stream) {
		size := chunkSizes[ci%len(chunkSizes)]
		ci++
		end := pos + size
		if end > len(stream) {
			end = len(stream)
		}
		got = append(got, feed(t, r, stream[pos:end])...)
		pos = end
	}
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i, f := range got {
		if string(f) != want[i] {
			t.Fatalf("frame %d = %q, want %q", i, f, want[i])
		}
	}
}

func TestReassemblerRejectsOversizeHeaderBeforeBody(t *testing.T) {
	r := NewReassembler(NewPool())
	header := "Content-Length: " + "99999999999" + "\r\n\r\n"
	_, err := feedErr(t, r, []byte(header))
	if err == nil || !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestReassemblerInvalidUTF8IsFatalButNotPanic(t *testing.T) {
	r := NewReassembler(NewPool())
	bad := append([]byte("Content-Length: 2\r\n\r\n"), 0xff, 0xfe)
	_, err := feedErr(t, r, bad)
	if err == nil || !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("err = %v, want ErrInvalidUTF8", err)
	}
}

func feedErr(t *testing.T, r *Reassembler, chunk []byte) ([][]byte, error) {
	t.Helper()
	staging, offset, err := r.Staging(len(chunk))
	if err != nil {
		return nil, err
	}
	n := copy(staging.Data[offset:], chunk)
	r.Append(n)
	return r.Extract()
}

func TestReassemblerCloseReleasesBuffer(t *testing.T) {
	pool := NewPool()
	r := NewReassembler(pool)
	feed(t, r, Encode([]byte(`{"a":1}`)))
	r.Close()
	if pool.Size() != 1 {
		t.Fatalf("pool.Size() = %d, want 1 after Close", pool.Size())
	}
}
