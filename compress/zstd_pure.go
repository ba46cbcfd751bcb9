//go:build !(cgo && gozstd)

package compress

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdEncoderPool pools single-threaded default level encoders.
// An encoder is re-targeted with Reset, so warmed up state survives between entries.
var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}

		return encoder
	},
}

// pooledZstdWriter returns its encoder to the pool on Close.
type pooledZstdWriter struct {
	*zstd.Encoder
	closed bool
}

func (p *pooledZstdWriter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.Encoder.Close()
	p.Encoder.Reset(nil)
	zstdEncoderPool.Put(p.Encoder)

	return err
}

func newZstdWriter(w io.Writer, level, concurrency int) (io.WriteCloser, error) {
	if level == 0 && concurrency == 1 {
		enc, _ := zstdEncoderPool.Get().(*zstd.Encoder)
		enc.Reset(w)

		return &pooledZstdWriter{Encoder: enc}, nil
	}

	encLevel := zstd.SpeedDefault
	if level > 0 {
		encLevel = zstd.EncoderLevelFromZstd(level)
	}

	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(encLevel),
		zstd.WithEncoderConcurrency(concurrency),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}

	return enc, nil
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}

	return dec.IOReadCloser(), nil
}
