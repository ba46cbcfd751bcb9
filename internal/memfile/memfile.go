// Package memfile provides an in-memory file usable as archive output and input.
package memfile

import (
	"errors"
	"fmt"
	"io"
)

var errNegativeOffset = errors.New("memfile: negative offset")

// File is a growable byte slice with a file position.
//
// It implements io.Writer, io.Seeker, io.ReaderAt and io.WriterAt. Writes past
// the end extend the file. File is not safe for concurrent use.
type File struct {
	data []byte
	pos  int64
}

// New returns an empty file.
func New() *File {
	return &File{}
}

// FromBytes returns a file holding a copy of b, positioned at the start.
func FromBytes(b []byte) *File {
	return &File{data: append([]byte(nil), b...)}
}

// Write writes p at the current position and advances it.
func (f *File) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, f.pos)
	f.pos += int64(n)

	return n, err
}

// WriteAt writes p at off, extending the file when needed.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}

	end := off + int64(len(p))
	if end > int64(len(f.data)) {
		if end > int64(cap(f.data)) {
			grown := make([]byte, end, max(end, 2*int64(cap(f.data))))
			copy(grown, f.data)
			f.data = grown
		} else {
			f.data = f.data[:end]
		}
	}

	return copy(f.data[off:], p), nil
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}

	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// Seek implements io.Seeker. Seeking past the end is allowed; the gap is
// zero-filled by the next write.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.pos + offset
	case io.SeekEnd:
		abs = int64(len(f.data)) + offset
	default:
		return 0, fmt.Errorf("memfile: invalid whence %d", whence)
	}

	if abs < 0 {
		return 0, errNegativeOffset
	}
	f.pos = abs

	return abs, nil
}

// Bytes returns the file content. The slice aliases the file until the next write.
func (f *File) Bytes() []byte {
	return f.data
}

// Size returns the file length.
func (f *File) Size() int64 {
	return int64(len(f.data))
}
