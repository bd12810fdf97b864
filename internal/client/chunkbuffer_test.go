package client

import (
	"fmt"
	"testing"
)

func TestChunkBufferOrder(t *testing.T) {
	b := NewChunkBuffer(8)
	for i := 0; i < 5; i++ {
		b.Push([]byte(fmt.Sprintf("chunk-%d", i)))
	}

	if b.Len() != 5 {
		t.Fatalf("expected 5 buffered chunks, got %d", b.Len())
	}

	out := b.Flush()
	if len(out) != 5 {
		t.Fatalf("expected 5 flushed chunks, got %d", len(out))
	}
	for i, chunk := range out {
		want := fmt.Sprintf("chunk-%d", i)
		if string(chunk) != want {
			t.Errorf("chunk %d: got %q, want %q", i, chunk, want)
		}
	}

	if b.Len() != 0 {
		t.Errorf("buffer should be empty after flush, has %d", b.Len())
	}
}

func TestChunkBufferDropOldest(t *testing.T) {
	b := NewChunkBuffer(3)
	for i := 0; i < 5; i++ {
		b.Push([]byte(fmt.Sprintf("chunk-%d", i)))
	}

	if b.Dropped() != 2 {
		t.Errorf("expected 2 dropped chunks, got %d", b.Dropped())
	}

	out := b.Flush()
	want := []string{"chunk-2", "chunk-3", "chunk-4"}
	if len(out) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(out))
	}
	for i := range want {
		if string(out[i]) != want[i] {
			t.Errorf("chunk %d: got %q, want %q", i, out[i], want[i])
		}
	}
}

func TestChunkBufferReuseAfterFlush(t *testing.T) {
	b := NewChunkBuffer(2)
	b.Push([]byte("a"))
	b.Flush()

	b.Push([]byte("b"))
	b.Push([]byte("c"))
	b.Push([]byte("d")) // evicts "b"

	out := b.Flush()
	if len(out) != 2 || string(out[0]) != "c" || string(out[1]) != "d" {
		t.Fatalf("unexpected flush result: %q", out)
	}
}
