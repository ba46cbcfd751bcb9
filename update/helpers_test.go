package update

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/internal/memfile"
)

var testTime = time.Date(2024, 5, 17, 10, 20, 30, 0, time.UTC)

// memSource serves item content from memory and records every callback.
type memSource struct {
	data        map[int][]byte
	unavailable map[int]bool
	openErr     map[int]error
	wrap        func(index int, r io.Reader) io.ReadCloser

	mu       sync.Mutex
	opened   []int
	outcomes map[int]Outcome
	reported []int
}

func newMemSource() *memSource {
	return &memSource{
		data:        make(map[int][]byte),
		unavailable: make(map[int]bool),
		openErr:     make(map[int]error),
		outcomes:    make(map[int]Outcome),
	}
}

func (s *memSource) GetStream(_ context.Context, index int, item *Item) (io.ReadCloser, error) {
	s.mu.Lock()
	s.opened = append(s.opened, index)
	s.mu.Unlock()

	if err := s.openErr[index]; err != nil {
		return nil, err
	}
	if s.unavailable[index] {
		return nil, fmt.Errorf("%w: %s", errs.ErrSourceUnavailable, item.Name)
	}

	r := bytes.NewReader(s.data[index])
	if s.wrap != nil {
		return s.wrap(index, r), nil
	}

	return io.NopCloser(r), nil
}

func (s *memSource) ReportResult(index int, _ *Item, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes[index] = outcome
	s.reported = append(s.reported, index)

	return nil
}

// testContent returns deterministic content that is partly compressible.
func testContent(seed int64, size int) []byte {
	rng := rand.New(rand.NewSource(seed))
	b := make([]byte, size)
	for i := range b {
		if i%4 == 0 {
			b[i] = byte(rng.Intn(256))
		} else {
			b[i] = byte('a' + i%23)
		}
	}

	return b
}

// randomContent returns incompressible content.
func randomContent(seed int64, size int) []byte {
	b := make([]byte, size)
	_, _ = rand.New(rand.NewSource(seed)).Read(b)

	return b
}

func fileItem(name string, size int) Item {
	return Item{
		NewData:       true,
		NewProperties: true,
		SourceIndex:   -1,
		Name:          name,
		Size:          uint64(size),
		Attributes:    0x20,
		Modified:      testTime,
	}
}

func dirItem(name string) Item {
	return Item{
		NewData:       true,
		NewProperties: true,
		SourceIndex:   -1,
		Name:          name,
		Attributes:    0x10,
		Modified:      testTime,
		IsDir:         true,
	}
}

// newFileSet builds n file items with content from gen.
func newFileSet(n int, size func(i int) int, gen func(seed int64, size int) []byte) ([]Item, *memSource) {
	src := newMemSource()
	items := make([]Item, n)
	for i := range items {
		sz := size(i)
		items[i] = fileItem(fmt.Sprintf("dir/file-%03d.dat", i), sz)
		src.data[i] = gen(int64(i), sz)
	}

	return items, src
}

func runCoordinator(t *testing.T, items []Item, src Source, opts ...Option) (*Report, []byte) {
	t.Helper()

	coord, err := NewCoordinator(opts...)
	require.NoError(t, err)

	out := memfile.New()
	report, err := coord.Run(context.Background(), out, items, src)
	require.NoError(t, err)
	require.Equal(t, StateDone, coord.State())

	return report, out.Bytes()
}

// openArchive opens b with decompressors for every built-in method.
func openArchive(t *testing.T, b []byte) *zip.Reader {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)

	reg := compress.NewRegistry()
	for _, m := range reg.Methods() {
		codec, err := reg.Lookup(m)
		require.NoError(t, err)
		zr.RegisterDecompressor(uint16(m), func(r io.Reader) io.ReadCloser {
			rc, err := codec.NewReader(r)
			if err != nil {
				return io.NopCloser(iotest.ErrReader(err))
			}

			return rc
		})
	}

	return zr
}

func readEntry(t *testing.T, f *zip.File) []byte {
	t.Helper()

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	return data
}

// requireContents checks that the archive holds exactly want, in order.
func requireContents(t *testing.T, b []byte, names []string, want map[string][]byte) {
	t.Helper()

	zr := openArchive(t, b)
	require.Len(t, zr.File, len(names))
	for i, f := range zr.File {
		require.Equal(t, names[i], f.Name)
		if data, ok := want[f.Name]; ok {
			require.Equal(t, data, readEntry(t, f), f.Name)
		}
	}
}

func namesOf(items []Item) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
		if it.IsDir {
			names[i] += "/"
		}
	}

	return names
}

func contentsOf(items []Item, src *memSource) map[string][]byte {
	m := make(map[string][]byte, len(items))
	for i, it := range items {
		if !it.IsDir {
			m[it.Name] = src.data[i]
		}
	}

	return m
}

// recordingSink records every progress report.
type recordingSink struct {
	mu        sync.Mutex
	total     uint64
	completed []uint64
}

func (s *recordingSink) SetTotal(total uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total

	return nil
}

func (s *recordingSink) SetCompleted(completed uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, completed)

	return nil
}

// gatedReader blocks its first Read until gate is closed and reports Close on closed.
type gatedReader struct {
	r      io.Reader
	gate   <-chan struct{}
	closed chan struct{}
	once   sync.Once
}

func (g *gatedReader) Read(p []byte) (int, error) {
	if g.gate != nil {
		<-g.gate
	}

	return g.r.Read(p)
}

func (g *gatedReader) Close() error {
	g.once.Do(func() { close(g.closed) })
	return nil
}

// slowReader sleeps before every Read.
type slowReader struct {
	r     io.Reader
	delay time.Duration
}

func (s *slowReader) Read(p []byte) (int, error) {
	time.Sleep(s.delay)
	return s.r.Read(p)
}

// failingCodec is a store-like codec whose writer fails after limit bytes.
type failingCodec struct {
	compress.StoreCodec
	limit int
}

// failMethod is a private method id used only by failingCodec.
const failMethod format.Method = 0x4641

func (failingCodec) Method() format.Method { return failMethod }

func (c failingCodec) NewWriter(w io.Writer, _ int, _ int) (io.WriteCloser, error) {
	return &failingWriter{w: w, limit: c.limit}, nil
}

type failingWriter struct {
	w     io.Writer
	n     int
	limit int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.n+len(p) > f.limit {
		return 0, fmt.Errorf("injected codec failure after %d bytes", f.n)
	}
	f.n += len(p)

	return f.w.Write(p)
}

func (f *failingWriter) Close() error { return nil }
