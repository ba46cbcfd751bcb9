package compress

import (
	"io"

	"github.com/arloliu/mezip/format"
)

// Encoder produces a compressed stream for one archive entry.
//
// Implementations are stateless from the caller's point of view: every
// NewWriter call returns an independent stream, so one Encoder may serve many
// workers at once.
type Encoder interface {
	// Method returns the method id written into the entry header.
	Method() format.Method

	// ExtractVersion returns the "version needed to extract" for entries using this method.
	ExtractVersion() uint16

	// ConcurrencyUnit returns the approximate number of input bytes one internal
	// encoder goroutine works on, or 0 when the codec cannot parallelize a single stream.
	ConcurrencyUnit() int64

	// NewWriter returns a writer that compresses into w.
	//
	// Parameters:
	//   - w: Destination of the compressed bytes (not closed by the returned writer)
	//   - level: Codec specific level, 0 selects the codec default
	//   - concurrency: Internal goroutines the codec may use, values < 1 mean 1
	//
	// Returns:
	//   - io.WriteCloser: Close flushes and finalizes the stream
	//   - error: Invalid level or option error
	NewWriter(w io.Writer, level, concurrency int) (io.WriteCloser, error)
}

// Decoder reads back a stream produced by the matching Encoder.
type Decoder interface {
	// Method returns the method id handled by the decoder.
	Method() format.Method

	// NewReader returns a reader that decompresses r.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Encoder
	Decoder
}

// Progress receives cumulative input and output byte counts of one compress call.
//
// A non-nil error aborts the compression and is returned unchanged by Compress.
type Progress interface {
	SetRatio(inSize, outSize uint64) error
}

// Result describes the outcome of compressing one item.
type Result struct {
	// Method is the method actually used.
	Method format.Method

	// CRC32 is the IEEE checksum of the uncompressed input.
	CRC32 uint32

	// UnpackSize is the number of input bytes consumed.
	UnpackSize uint64

	// PackSize is the number of compressed bytes produced.
	PackSize uint64

	// ExtractVersion is the format version hint for the entry header.
	ExtractVersion uint16
}

// CompressionRatio returns the compression ratio (packed size / unpacked size).
//
// Values less than 1.0 indicate successful compression.
//
// Returns:
//   - float64: Compression ratio (0.0 if unpacked size is zero)
func (r Result) CompressionRatio() float64 {
	if r.UnpackSize == 0 {
		return 0.0
	}

	return float64(r.PackSize) / float64(r.UnpackSize)
}

// SpaceSavings returns the space savings as a percentage (0-100%).
func (r Result) SpaceSavings() float64 {
	return (1.0 - r.CompressionRatio()) * 100.0
}

// CreateCodec is a factory function that creates a Codec for the specified method.
//
// Returns:
//   - Codec: Codec instance for the specified method
//   - error: ErrUnknownMethod wrapped with the method name
func CreateCodec(method format.Method) (Codec, error) {
	switch method {
	case format.MethodStore:
		return NewStoreCodec(), nil
	case format.MethodDeflate:
		return NewDeflateCodec(), nil
	case format.MethodZstd:
		return NewZstdCodec(), nil
	case format.MethodS2:
		return NewS2Codec(), nil
	case format.MethodLZ4:
		return NewLZ4Codec(), nil
	default:
		return nil, unknownMethod(method)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
