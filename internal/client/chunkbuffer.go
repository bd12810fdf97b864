package client

import "sync"

// ChunkBuffer holds not-yet-sent audio chunks in a fixed-capacity ring.
// Overflow drops the oldest chunk first: bounded memory wins over keeping
// every second of a long silence. Flush returns chunks in original
// production order.
type ChunkBuffer struct {
	mu      sync.Mutex
	buf     [][]byte
	head    int // index of the oldest chunk
	size    int
	dropped int
}

func NewChunkBuffer(capacity int) *ChunkBuffer {
	if capacity <= 0 {
		capacity = 32
	}
	return &ChunkBuffer{buf: make([][]byte, capacity)}
}

// Push appends a chunk, evicting the oldest when full.
func (b *ChunkBuffer) Push(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == len(b.buf) {
		b.head = (b.head + 1) % len(b.buf)
		b.size--
		b.dropped++
	}
	b.buf[(b.head+b.size)%len(b.buf)] = chunk
	b.size++
}

// Flush removes and returns all buffered chunks, oldest first.
func (b *ChunkBuffer) Flush() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([][]byte, 0, b.size)
	for i := 0; i < b.size; i++ {
		idx := (b.head + i) % len(b.buf)
		out = append(out, b.buf[idx])
		b.buf[idx] = nil
	}
	b.head = 0
	b.size = 0
	return out
}

func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Dropped counts chunks lost to overflow since creation.
func (b *ChunkBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
