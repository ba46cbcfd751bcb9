package compress

import (
	"io"

	"github.com/arloliu/mezip/format"
)

// StoreCodec writes the payload unchanged.
//
// It is used for directories, already-compressed content and for the
// "store" method of the configuration.
type StoreCodec struct{}

var _ Codec = (*StoreCodec)(nil)

// NewStoreCodec creates a new store codec.
func NewStoreCodec() StoreCodec {
	return StoreCodec{}
}

func (StoreCodec) Method() format.Method  { return format.MethodStore }
func (StoreCodec) ExtractVersion() uint16 { return format.VersionStore }
func (StoreCodec) ConcurrencyUnit() int64 { return 0 }

// NewWriter returns w wrapped with a no-op Close.
func (StoreCodec) NewWriter(w io.Writer, _, _ int) (io.WriteCloser, error) {
	return nopWriteCloser{Writer: w}, nil
}

// NewReader returns r wrapped with a no-op Close.
func (StoreCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}
