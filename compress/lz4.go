package compress

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/mezip/format"
)

// lz4BlockSize matches the frame block size the writer is configured with.
const lz4BlockSize = 4 << 20

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level1, lz4.Level2, lz4.Level3,
	lz4.Level4, lz4.Level5, lz4.Level6,
	lz4.Level7, lz4.Level8, lz4.Level9,
}

// LZ4Codec provides LZ4 frame streams under a private method id.
type LZ4Codec struct{}

var _ Codec = (*LZ4Codec)(nil)

// NewLZ4Codec creates a new LZ4 codec.
//
// Returns:
//   - LZ4Codec: New LZ4 codec instance
func NewLZ4Codec() LZ4Codec {
	return LZ4Codec{}
}

func (LZ4Codec) Method() format.Method  { return format.MethodLZ4 }
func (LZ4Codec) ExtractVersion() uint16 { return format.VersionZstd }
func (LZ4Codec) ConcurrencyUnit() int64 { return lz4BlockSize }

// NewWriter creates an LZ4 frame writer.
//
// Parameters:
//   - w: Destination writer
//   - level: 0 for the fast mode, 1-9 for the high compression levels
//   - concurrency: Number of goroutines compressing blocks
//
// Returns:
//   - io.WriteCloser: Frame writer, Close writes the end mark
//   - error: Level out of range or option error
func (LZ4Codec) NewWriter(w io.Writer, level, concurrency int) (io.WriteCloser, error) {
	if level < 0 || level >= len(lz4Levels) {
		return nil, fmt.Errorf("lz4 level %d out of range [0, %d]", level, len(lz4Levels)-1)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zw := lz4.NewWriter(w)
	if err := zw.Apply(
		lz4.BlockSizeOption(lz4.Block4Mb),
		lz4.CompressionLevelOption(lz4Levels[level]),
		lz4.ConcurrencyOption(concurrency),
	); err != nil {
		return nil, fmt.Errorf("lz4 writer: %w", err)
	}

	return zw, nil
}

// NewReader creates an LZ4 frame reader.
func (LZ4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
