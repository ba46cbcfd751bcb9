package compress

import (
	"io"

	"github.com/arloliu/mezip/format"
)

// zstdConcurrencyUnit approximates the input span one encoder goroutine handles.
const zstdConcurrencyUnit = 4 << 20

// ZstdCodec provides Zstandard streams (method 93).
//
// The default build uses the pure Go klauspost/compress/zstd encoder, which can
// spread one stream across several goroutines. Building with the "gozstd" tag
// and cgo enabled switches to the libzstd binding from valyala/gozstd.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstd codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

func (ZstdCodec) Method() format.Method  { return format.MethodZstd }
func (ZstdCodec) ExtractVersion() uint16 { return format.VersionZstd }
func (ZstdCodec) ConcurrencyUnit() int64 { return zstdConcurrencyUnit }

// NewWriter creates a zstd stream writer.
//
// Level follows the zstd command line scale (1-22), 0 selects the default.
func (ZstdCodec) NewWriter(w io.Writer, level, concurrency int) (io.WriteCloser, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	return newZstdWriter(w, level, concurrency)
}

// NewReader creates a zstd stream reader.
func (ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return newZstdReader(r)
}
