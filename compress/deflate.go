package compress

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/arloliu/mezip/format"
)

// DeflateCodec provides raw DEFLATE streams, the most widely readable method.
type DeflateCodec struct{}

var _ Codec = (*DeflateCodec)(nil)

// NewDeflateCodec creates a new deflate codec.
func NewDeflateCodec() DeflateCodec {
	return DeflateCodec{}
}

func (DeflateCodec) Method() format.Method  { return format.MethodDeflate }
func (DeflateCodec) ExtractVersion() uint16 { return format.VersionDeflate }
func (DeflateCodec) ConcurrencyUnit() int64 { return 0 }

// NewWriter creates a deflate writer. Level 0 maps to flate.DefaultCompression.
func (DeflateCodec) NewWriter(w io.Writer, level, _ int) (io.WriteCloser, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}

	fw, err := flate.NewWriter(w, level)
	if err != nil {
		return nil, fmt.Errorf("deflate writer: %w", err)
	}

	return fw, nil
}

// NewReader creates a deflate reader.
func (DeflateCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return flate.NewReader(r), nil
}
