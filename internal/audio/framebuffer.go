package audio

import "iter"

// FrameBuffer accumulates raw telephony audio bytes and releases them as
// fixed-size chunks once enough bytes have arrived. Twilio delivers small
// 20ms frames; the agent backend performs better with larger batches.
//
// A FrameBuffer is owned by a single relay loop and is not safe for
// concurrent use.
type FrameBuffer struct {
	chunkSize int
	buf       []byte
}

// NewFrameBuffer creates a buffer that emits chunks of exactly chunkSize bytes.
func NewFrameBuffer(chunkSize int) *FrameBuffer {
	return &FrameBuffer{chunkSize: chunkSize}
}

// Append stores raw bytes at the end of the buffer.
func (b *FrameBuffer) Append(p []byte) {
	b.buf = append(b.buf, p...)
}

// Drain yields full chunks from the front of the buffer, removing them as it
// goes, and stops once fewer than chunkSize bytes remain. Bytes below the
// threshold stay buffered until more data arrives. Each yielded chunk is an
// independent copy and is always exactly chunkSize bytes.
func (b *FrameBuffer) Drain() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for len(b.buf) >= b.chunkSize {
			chunk := make([]byte, b.chunkSize)
			copy(chunk, b.buf[:b.chunkSize])
			b.buf = b.buf[b.chunkSize:]
			if !yield(chunk) {
				return
			}
		}
	}
}

// Buffered returns the number of bytes currently held below the chunk threshold.
func (b *FrameBuffer) Buffered() int {
	return len(b.buf)
}

// ChunkSize returns the configured chunk size in bytes.
func (b *FrameBuffer) ChunkSize() int {
	return b.chunkSize
}
