package audio

import "sync"

// Buffer is a FIFO of encoded audio shared between a producer (speech or
// cue synthesis) and a device callback that drains it in fixed chunks.
type Buffer struct {
	mu      sync.Mutex
	pending []byte
	silence byte
}

func NewBuffer(encoding EncodingInfo) *Buffer {
	return &Buffer{silence: encoding.SilenceValue()}
}

func (b *Buffer) Write(audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, audio...)
}

// Fill copies up to len(out) bytes into out and pads the remainder with
// silence. It returns the number of audio bytes copied.
func (b *Buffer) Fill(out []byte) int {
	b.mu.Lock()
	n := copy(out, b.pending)
	b.pending = b.pending[n:]
	if len(b.pending) == 0 {
		b.pending = nil
	}
	b.mu.Unlock()

	for i := n; i < len(out); i++ {
		out[i] = b.silence
	}
	return n
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Clear drops everything not yet played.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}
