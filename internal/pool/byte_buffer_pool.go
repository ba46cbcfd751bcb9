package pool

import (
	"io"
	"sync"
)

// Default sizes of the ByteBuffers handed out by the package pools.
const (
	HeaderBufferDefaultSize     = 512             // 512B, one local header with a typical name
	HeaderBufferMaxThreshold    = 1024 * 128      // 128KiB
	DirectoryBufferDefaultSize  = 1024 * 64       // 64KiB
	DirectoryBufferMaxThreshold = 1024 * 1024 * 8 // 8MiB
	smallBufferLimit            = 4 * HeaderBufferDefaultSize
)

type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes() returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite writes data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Grow grows the buffer to ensure it can hold requiredBytes more bytes without reallocating.
// If the buffer has sufficient capacity, Grow does nothing.
//
// Small buffers grow by HeaderBufferDefaultSize, larger ones by 25% of their
// current capacity, and always by at least requiredBytes.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := HeaderBufferDefaultSize
	if cap(bb.B) > smallBufferLimit {
		growBy = cap(bb.B) / 4
	}

	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a pool of ByteBuffers to minimize allocations.
//
// It uses sync.Pool internally to manage the buffers.
// The pool can be configured with a maximum size threshold to avoid retaining
// overly large buffers that could lead to memory bloat.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int // Optional maximum size threshold for buffers
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		// Discard overly large buffers to prevent memory bloat
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	headerDefaultPool    = NewByteBufferPool(HeaderBufferDefaultSize, HeaderBufferMaxThreshold)
	directoryDefaultPool = NewByteBufferPool(DirectoryBufferDefaultSize, DirectoryBufferMaxThreshold)
)

// GetHeaderBuffer retrieves a ByteBuffer for encoding one entry header.
func GetHeaderBuffer() *ByteBuffer {
	return headerDefaultPool.Get()
}

// PutHeaderBuffer returns a header ByteBuffer to the pool.
func PutHeaderBuffer(bb *ByteBuffer) {
	headerDefaultPool.Put(bb)
}

// GetDirectoryBuffer retrieves a ByteBuffer for assembling a central directory.
func GetDirectoryBuffer() *ByteBuffer {
	return directoryDefaultPool.Get()
}

// PutDirectoryBuffer returns a directory ByteBuffer to the pool.
func PutDirectoryBuffer(bb *ByteBuffer) {
	directoryDefaultPool.Put(bb)
}
