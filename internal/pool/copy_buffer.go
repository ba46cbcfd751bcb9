package pool

import "sync"

// CopyBufferSize is the length of the buffers returned by GetCopyBuffer.
const CopyBufferSize = 32 * 1024

var copyBufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, CopyBufferSize)
		return &buf
	},
}

// GetCopyBuffer retrieves a CopyBufferSize scratch buffer for streaming copies.
//
// The caller must call the returned cleanup function to return the buffer to the pool.
//
// Returns:
//   - []byte: A slice with length CopyBufferSize
//   - func(): Cleanup function that must be called (typically with defer)
//
// Example:
//
//	buf, release := pool.GetCopyBuffer()
//	defer release()
//	_, err := io.CopyBuffer(dst, src, buf)
func GetCopyBuffer() ([]byte, func()) {
	ptr, _ := copyBufferPool.Get().(*[]byte)
	return *ptr, func() { copyBufferPool.Put(ptr) }
}
