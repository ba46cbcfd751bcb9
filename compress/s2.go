package compress

import (
	"io"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/mezip/format"
)

// s2BlockSize is the S2 writer default block size; each block can be encoded by its own goroutine.
const s2BlockSize = 1 << 20

// S2Codec provides framed S2 streams under a private method id.
//
// S2 trades ratio for speed and parallelizes a single stream block by block.
type S2Codec struct{}

var _ Codec = (*S2Codec)(nil)

// NewS2Codec creates a new S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

func (S2Codec) Method() format.Method  { return format.MethodS2 }
func (S2Codec) ExtractVersion() uint16 { return format.VersionZstd }
func (S2Codec) ConcurrencyUnit() int64 { return s2BlockSize }

// NewWriter creates an S2 stream writer.
//
// Level 0 and 1 use the default encoder, 2 selects "better" and 3 or more selects "best".
func (S2Codec) NewWriter(w io.Writer, level, concurrency int) (io.WriteCloser, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	opts := []s2.WriterOption{
		s2.WriterConcurrency(concurrency),
		s2.WriterBlockSize(s2BlockSize),
	}
	switch {
	case level >= 3:
		opts = append(opts, s2.WriterBestCompression())
	case level == 2:
		opts = append(opts, s2.WriterBetterCompression())
	}

	return s2.NewWriter(w, opts...), nil
}

// NewReader creates an S2 stream reader.
func (S2Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(r)), nil
}
