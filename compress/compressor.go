package compress

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/arloliu/mezip/internal/pool"
)

// Compressor runs one codec over a whole item.
//
// It computes the checksum and both sizes while streaming, so callers never
// need to know the input length in advance.
type Compressor struct {
	codec       Encoder
	level       int
	concurrency int
}

// NewCompressor creates a compressor for codec.
//
// Parameters:
//   - codec: Encoder producing the entry payload
//   - level: Codec level, 0 selects the codec default
//   - concurrency: Internal goroutines handed to the codec, values < 1 mean 1
func NewCompressor(codec Encoder, level, concurrency int) *Compressor {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Compressor{codec: codec, level: level, concurrency: concurrency}
}

// Codec returns the encoder used by the compressor.
func (c *Compressor) Codec() Encoder {
	return c.codec
}

// Concurrency returns the internal goroutine budget handed to the codec.
func (c *Compressor) Concurrency() int {
	return c.concurrency
}

// Compress reads in until EOF and writes the compressed stream to out.
//
// Progress, when non-nil, is told the cumulative input and output sizes after
// every chunk. An error from progress stops the call and is returned as is.
//
// Returns:
//   - Result: Method, checksum and sizes of the produced stream
//   - error: Read, codec or progress error
func (c *Compressor) Compress(in io.Reader, out io.Writer, progress Progress) (Result, error) {
	cw := &countingWriter{w: out}

	zw, err := c.codec.NewWriter(cw, c.level, c.concurrency)
	if err != nil {
		return Result{}, err
	}

	buf, release := pool.GetCopyBuffer()
	defer release()

	crc := crc32.NewIEEE()
	var inSize uint64

	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			_, _ = crc.Write(buf[:n])
			if _, werr := zw.Write(buf[:n]); werr != nil {
				_ = zw.Close()
				return Result{}, fmt.Errorf("%s write: %w", c.codec.Method(), werr)
			}
			inSize += uint64(n)

			if progress != nil {
				if perr := progress.SetRatio(inSize, cw.n); perr != nil {
					_ = zw.Close()
					return Result{}, perr
				}
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			_ = zw.Close()
			return Result{}, fmt.Errorf("read input: %w", rerr)
		}
	}

	if err := zw.Close(); err != nil {
		return Result{}, fmt.Errorf("%s close: %w", c.codec.Method(), err)
	}

	if progress != nil {
		if err := progress.SetRatio(inSize, cw.n); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Method:         c.codec.Method(),
		CRC32:          crc.Sum32(),
		UnpackSize:     inSize,
		PackSize:       cw.n,
		ExtractVersion: c.codec.ExtractVersion(),
	}, nil
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n) //nolint: gosec

	return n, err
}
