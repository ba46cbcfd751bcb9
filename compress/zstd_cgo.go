//go:build cgo && gozstd

package compress

import (
	"io"

	"github.com/valyala/gozstd"
)

const zstdDefaultLevel = 3

type gozstdWriter struct {
	*gozstd.Writer
}

func (g gozstdWriter) Close() error {
	defer g.Release()

	return g.Writer.Close()
}

type gozstdReader struct {
	*gozstd.Reader
}

func (g gozstdReader) Close() error {
	g.Release()

	return nil
}

// libzstd manages its own worker threads, so concurrency is ignored here.
func newZstdWriter(w io.Writer, level, _ int) (io.WriteCloser, error) {
	if level == 0 {
		level = zstdDefaultLevel
	}

	return gozstdWriter{Writer: gozstd.NewWriterLevel(w, level)}, nil
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	return gozstdReader{Reader: gozstd.NewReader(r)}, nil
}
