package mezip

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/internal/memfile"
	"github.com/arloliu/mezip/update"
)

type bytesSource map[int][]byte

func (s bytesSource) GetStream(_ context.Context, index int, _ *update.Item) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s[index])), nil
}

func (bytesSource) ReportResult(int, *update.Item, update.Outcome) error { return nil }

func newItem(name string, size int) update.Item {
	return update.Item{
		NewData:       true,
		NewProperties: true,
		SourceIndex:   -1,
		Name:          name,
		Size:          uint64(size),
		Modified:      time.Date(2025, 1, 2, 3, 4, 6, 0, time.UTC),
	}
}

func TestNewCoordinator(t *testing.T) {
	coord, err := NewCoordinator()
	require.NoError(t, err)
	require.Equal(t, update.StateIdle, coord.State())

	_, err = NewCoordinator(update.WithThreads(-1))
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestUpdateAndReuse(t *testing.T) {
	src := bytesSource{0: []byte("first"), 1: bytes.Repeat([]byte("second "), 100)}
	items := []update.Item{newItem("a.txt", 5), newItem("b.txt", 700)}

	out := memfile.New()
	report, err := Update(context.Background(), out, items, src, update.WithThreads(2))
	require.NoError(t, err)
	require.Len(t, report.Entries, 2)

	prior, err := OpenArchive(bytes.NewReader(out.Bytes()), out.Size())
	require.NoError(t, err)

	reused := ReuseAll(prior)
	require.Len(t, reused, 2)
	require.Equal(t, "b.txt", reused[1].Name)
	require.Equal(t, uint64(700), reused[1].Size)

	// appending to a copy of every entry
	src2 := bytesSource{2: []byte("third")}
	items2 := append(reused, newItem("c.txt", 5))

	out2 := memfile.New()
	_, err = Update(context.Background(), out2, items2, src2, update.WithPrior(prior))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(out2.Bytes()), out2.Size())
	require.NoError(t, err)
	require.Len(t, zr.File, 3)
	require.Equal(t, "c.txt", zr.File[2].Name)

	// the copied entries are byte-identical to the first archive
	require.Equal(t, out.Bytes()[:report.Entries[1].LocalHeaderOffset], out2.Bytes()[:report.Entries[1].LocalHeaderOffset])
}
