package wire

// Buffer is an owned, growable byte region. It doubles on overflow,
// starting at 256 bytes, matching the growth policy the input reader
// and codec finalize-for-wire step both rely on.
type Buffer struct {
	data []byte
}

const initialBufferSize = 256

// NewBuffer returns an empty Buffer with no backing allocation yet.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Len returns the number of bytes currently used.
func (b *Buffer) Len() int { return len(b.data) }

// Cap returns the number of bytes currently allocated.
func (b *Buffer) Cap() int { return cap(b.data) }

// Bytes returns the used portion of the buffer. The returned slice aliases
// the buffer's storage and must not outlive a subsequent mutation of b.
func (b *Buffer) Bytes() []byte { return b.data }

// Reset clears the buffer's contents without releasing its allocation.
func (b *Buffer) Reset() { b.data = b.data[:0] }

// Grow ensures at least n additional bytes of capacity are available,
// doubling the allocation (starting at 256) rather than growing exactly
// to fit, so repeated small appends amortize to O(1).
func (b *Buffer) Grow(n int) {
	need := len(b.data) + n
	if need <= cap(b.data) {
		return
	}
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = initialBufferSize
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
}

// Append adds p to the buffer, growing as needed.
func (b *Buffer) Append(p ...byte) {
	b.Grow(len(p))
	b.data = append(b.data, p...)
}

// AppendString adds s's bytes to the buffer, growing as needed.
func (b *Buffer) AppendString(s string) {
	b.Grow(len(s))
	b.data = append(b.data, s...)
}

// AppendZero appends a single NUL terminator byte.
func (b *Buffer) AppendZero() { b.Append(0) }

// Set replaces the buffer's contents with p, copying it in.
func (b *Buffer) Set(p []byte) {
	b.Reset()
	b.Append(p...)
}

// PatchUint16BE overwrites bytes [offset:offset+2] with v in big-endian
// order. Used by the Sender to stamp msg-id bytes onto a queued entry's
// buffer in place, immediately before transmission, without reallocating.
func (b *Buffer) PatchUint16BE(offset int, v uint16) {
	b.data[offset] = byte(v >> 8)
	b.data[offset+1] = byte(v)
}

// BytesSlice is an unowned view into a Buffer: a start index and a length.
// It must never outlive the Buffer it references, since Buffer.Grow may
// reallocate the backing array.
type BytesSlice struct {
	Start int
	Len   int
}

// Of resolves a BytesSlice against its owning Buffer into a live []byte.
func (s BytesSlice) Of(b *Buffer) []byte {
	if s.Len == 0 {
		return nil
	}
	return b.Bytes()[s.Start : s.Start+s.Len]
}

// StringOf resolves a BytesSlice against its owning Buffer into a string copy.
func (s BytesSlice) StringOf(b *Buffer) string {
	return string(s.Of(b))
}

// findZero scans raw starting at offset for a NUL terminator, returning the
// slice of bytes before it (exclusive) and the offset just past the
// terminator. ok is false if no terminator was found before the end of raw.
func findZero(raw []byte, offset int) (slice BytesSlice, next int, ok bool) {
	for i := offset; i < len(raw); i++ {
		if raw[i] == 0 {
			return BytesSlice{Start: offset, Len: i - offset}, i + 1, true
		}
	}
	return BytesSlice{}, offset, false
}
