package update

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/mezip/archive"
	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/internal/memfile"
	"github.com/arloliu/mezip/section"
)

func TestNewCoordinator_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero threads", WithThreads(0)},
		{"zero memory", WithMemoryPerThread(0)},
		{"zero block", WithBlockSize(0)},
		{"empty methods", WithMethods()},
		{"bad strength", WithEncryption(7)},
		{"nil policy", WithSplitPolicy(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCoordinator(tt.opt)
			require.ErrorIs(t, err, errs.ErrInvalidConfig)
		})
	}

	t.Run("block larger than budget", func(t *testing.T) {
		_, err := NewCoordinator(WithMemoryPerThread(1024), WithBlockSize(4096))
		require.ErrorIs(t, err, errs.ErrInvalidConfig)
	})

	t.Run("threads capped", func(t *testing.T) {
		c, err := NewCoordinator(WithThreads(MaxThreads * 4))
		require.NoError(t, err)
		require.Equal(t, MaxThreads, c.cfg.Threads)
		require.Equal(t, StateIdle, c.State())
	})
}

func TestRun_SerialWritesReadableArchive(t *testing.T) {
	items, src := newFileSet(6, func(i int) int { return 1000 * (i + 1) }, testContent)
	items = append([]Item{dirItem("dir")}, items...)
	// shift content keys by one for the directory
	shifted := newMemSource()
	for i, b := range src.data {
		shifted.data[i+1] = b
	}

	for _, method := range []format.Method{format.MethodStore, format.MethodDeflate, format.MethodZstd, format.MethodS2, format.MethodLZ4} {
		t.Run(method.String(), func(t *testing.T) {
			report, b := runCoordinator(t, items, shifted, WithThreads(1), WithMethods(method))

			require.False(t, report.Multithreaded)
			require.Len(t, report.Entries, len(items))
			requireContents(t, b, namesOf(items), contentsOf(items, shifted))

			dir := report.Entries[0]
			assert.True(t, dir.IsDir())
			assert.Equal(t, format.MethodStore, dir.Method)
			assert.Zero(t, dir.PackSize)
			for _, e := range report.Entries[1:] {
				assert.Equal(t, method, e.Method)
			}

			assert.Equal(t, OutcomeOK, shifted.outcomes[0])
			assert.Len(t, shifted.reported, len(items))
		})
	}
}

// The archive must not depend on the thread count.
func TestRun_OrderAndBytesIndependentOfThreads(t *testing.T) {
	sizes := func(i int) int { return 200 + (i*7919)%70000 }
	items, src := newFileSet(40, sizes, testContent)

	for _, method := range []format.Method{format.MethodDeflate, format.MethodZstd, format.MethodS2} {
		t.Run(method.String(), func(t *testing.T) {
			serial, serialBytes := runCoordinator(t, items, src, WithThreads(1), WithMethods(method))
			require.False(t, serial.Multithreaded)

			for _, threads := range []int{2, 8} {
				// force file-level workers for internally parallel codecs
				policy := WithSplitPolicy(func(total int, _ SizeProfile) (int, int) { return total, 1 })
				par, parBytes := runCoordinator(t, items, src,
					WithThreads(threads), WithMethods(method), policy,
					WithMemoryPerThread(1<<16), WithBlockSize(1<<12))

				require.True(t, par.Multithreaded)
				require.Equal(t, threads, par.FileThreads)
				require.Equal(t, serial.Entries, par.Entries)
				require.Equal(t, serialBytes, parBytes)
			}

			requireContents(t, serialBytes, namesOf(items), contentsOf(items, src))
		})
	}
}

func TestRun_SingleCompressibleItemIsSerial(t *testing.T) {
	items := []Item{dirItem("a"), fileItem("a/one.txt", 5000), dirItem("b")}
	src := newMemSource()
	src.data[1] = testContent(1, 5000)

	r1, b1 := runCoordinator(t, items, src, WithThreads(1))
	r8, b8 := runCoordinator(t, items, src, WithThreads(8))

	require.False(t, r8.Multithreaded)
	require.Equal(t, r1.Entries, r8.Entries)
	require.Equal(t, b1, b8)
}

func TestRun_SkipUnavailable(t *testing.T) {
	for _, threads := range []int{1, 4} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			items, src := newFileSet(6, func(int) int { return 3000 }, testContent)
			src.unavailable[2] = true
			src.unavailable[5] = true
			sink := &recordingSink{}

			report, b := runCoordinator(t, items, src, WithThreads(threads), WithProgress(sink))

			require.Equal(t, 2, report.Skipped)
			require.Len(t, report.Failures, 2)
			require.Equal(t, 2, report.Failures[0].Index)
			require.Equal(t, 5, report.Failures[1].Index)
			require.ErrorIs(t, report.Failures[0].Err, errs.ErrSourceUnavailable)

			kept := []Item{items[0], items[1], items[3], items[4]}
			keptSrc := newMemSource()
			for i, idx := range []int{0, 1, 3, 4} {
				keptSrc.data[i] = src.data[idx]
			}
			requireContents(t, b, namesOf(kept), contentsOf(kept, keptSrc))

			assert.Equal(t, OutcomeSkipped, src.outcomes[2])
			assert.Equal(t, OutcomeSkipped, src.outcomes[5])
			assert.Equal(t, OutcomeOK, src.outcomes[0])
			assert.Len(t, src.outcomes, 6)

			require.NotEmpty(t, sink.completed)
			assert.Equal(t, sink.total, sink.completed[len(sink.completed)-1])
		})
	}
}

func TestRun_ProgressMonotone(t *testing.T) {
	for _, threads := range []int{1, 6} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			items, src := newFileSet(30, func(i int) int { return 1000 + i*3000 }, testContent)
			src.unavailable[7] = true
			// one file grows while being read
			src.data[3] = append(src.data[3], make([]byte, 5000)...)
			sink := &recordingSink{}

			runCoordinator(t, items, src, WithThreads(threads), WithProgress(sink))

			require.NotZero(t, sink.total)
			require.NotEmpty(t, sink.completed)
			prev := uint64(0)
			for _, v := range sink.completed {
				require.GreaterOrEqual(t, v, prev)
				require.LessOrEqual(t, v, sink.total)
				prev = v
			}
			require.Equal(t, sink.total, prev)
		})
	}
}

func TestRun_ProgressTotal(t *testing.T) {
	items, src := newFileSet(3, func(i int) int { return 100 * (i + 1) }, testContent)
	sink := &recordingSink{}

	runCoordinator(t, items, src, WithThreads(1), WithProgress(sink), WithComment("hi"))

	want := uint64(100+200+300) +
		3*(section.LocalHeaderSize+section.CentralHeaderSize) +
		2 + section.EndOfCentralSize
	require.Equal(t, want, sink.total)
}

func TestRun_CodecFailure(t *testing.T) {
	reg := compress.NewEmptyRegistry()
	reg.Register(failingCodec{limit: 4096})

	for _, threads := range []int{1, 4} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			items, src := newFileSet(8, func(i int) int {
				if i == 5 {
					return 10000
				}
				return 100
			}, testContent)

			coord, err := NewCoordinator(WithThreads(threads), WithRegistry(reg), WithMethods(failMethod))
			require.NoError(t, err)

			_, err = coord.Run(context.Background(), memfile.New(), items, src)
			require.ErrorIs(t, err, errs.ErrCodecFailure)

			var runErr *RunError
			require.ErrorAs(t, err, &runErr)
			require.Equal(t, StateFailed, coord.State())
		})
	}
}

func TestRun_SourceErrorIsFatal(t *testing.T) {
	for _, threads := range []int{1, 4, 8} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			items, src := newFileSet(6, func(int) int { return 500 }, testContent)
			src.wrap = func(index int, r io.Reader) io.ReadCloser {
				if index == 0 {
					return io.NopCloser(&slowReader{r: r, delay: time.Millisecond})
				}
				return io.NopCloser(r)
			}
			src.unavailable[1] = true
			boom := errors.New("device on fire")
			src.openErr[2] = boom

			coord, err := NewCoordinator(WithThreads(threads))
			require.NoError(t, err)

			_, err = coord.Run(context.Background(), memfile.New(), items, src)
			require.ErrorIs(t, err, boom)
			require.Equal(t, StateFailed, coord.State())

			var runErr *RunError
			require.ErrorAs(t, err, &runErr)
			require.Len(t, runErr.Failures, 1)
			require.Equal(t, 1, runErr.Failures[0].Index)
			require.ErrorIs(t, runErr.Failures[0].Err, errs.ErrSourceUnavailable)

			src.mu.Lock()
			defer src.mu.Unlock()
			require.Equal(t, OutcomeSkipped, src.outcomes[1])
			require.NotContains(t, src.outcomes, 2)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		items, src := newFileSet(3, func(int) int { return 100 }, testContent)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		coord, err := NewCoordinator(WithThreads(1))
		require.NoError(t, err)

		_, err = coord.Run(ctx, memfile.New(), items, src)
		require.ErrorIs(t, err, errs.ErrCancelled)
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, StateCancelled, coord.State())
	})

	for _, threads := range []int{1, 4} {
		t.Run(fmt.Sprintf("during run threads=%d", threads), func(t *testing.T) {
			items, src := newFileSet(50, func(int) int { return 20000 }, testContent)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			src.wrap = func(index int, r io.Reader) io.ReadCloser {
				if index == 3 {
					cancel()
				}
				return io.NopCloser(&slowReader{r: r, delay: time.Millisecond})
			}

			coord, err := NewCoordinator(WithThreads(threads))
			require.NoError(t, err)

			_, err = coord.Run(ctx, memfile.New(), items, src)
			require.ErrorIs(t, err, errs.ErrCancelled)
			require.Equal(t, StateCancelled, coord.State())
		})
	}
}

func TestRun_Validation(t *testing.T) {
	coord, err := NewCoordinator(WithThreads(1))
	require.NoError(t, err)

	t.Run("source index without prior", func(t *testing.T) {
		items := []Item{{SourceIndex: 0, Name: "x"}}
		_, err := coord.Run(context.Background(), memfile.New(), items, newMemSource())
		require.ErrorIs(t, err, errs.ErrInvalidSourceIndex)
		require.Equal(t, StateFailed, coord.State())
	})

	t.Run("duplicate name", func(t *testing.T) {
		items := []Item{fileItem("a.txt", 0), fileItem("A.txt", 0), fileItem("a.txt", 0)}
		_, err := coord.Run(context.Background(), memfile.New(), items, newMemSource())
		require.ErrorIs(t, err, errs.ErrDuplicateName)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := coord.Run(context.Background(), memfile.New(), []Item{fileItem("", 0)}, newMemSource())
		require.ErrorIs(t, err, errs.ErrInvalidName)
	})

	t.Run("new data without source", func(t *testing.T) {
		_, err := coord.Run(context.Background(), memfile.New(), []Item{fileItem("a", 1)}, nil)
		require.ErrorIs(t, err, errs.ErrInvalidConfig)
	})

	t.Run("no usable method", func(t *testing.T) {
		c, err := NewCoordinator(WithRegistry(compress.NewEmptyRegistry()))
		require.NoError(t, err)
		src := newMemSource()
		src.data[0] = []byte("x")
		_, err = c.Run(context.Background(), memfile.New(), []Item{fileItem("a", 1)}, src)
		require.ErrorIs(t, err, errs.ErrUnknownMethod)
	})
}

func TestRun_EmptyItemList(t *testing.T) {
	report, b := runCoordinator(t, nil, nil, WithComment("empty"))

	require.Empty(t, report.Entries)
	require.Len(t, b, section.EndOfCentralSize+len("empty"))
	zr := openArchive(t, b)
	require.Empty(t, zr.File)
	require.Equal(t, "empty", zr.Comment)
}

func TestRun_Encryption(t *testing.T) {
	items := []Item{dirItem("d"), fileItem("d/a.bin", 4000), fileItem("d/b.bin", 4000)}
	src := newMemSource()
	src.data[1] = testContent(1, 4000)
	src.data[2] = testContent(2, 4000)

	for _, threads := range []int{1, 2} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			report, b := runCoordinator(t, items, src,
				WithThreads(threads), WithMethods(format.MethodStore), WithEncryption(archive.AES128))

			// stored entries still run on workers once encryption is on
			require.Equal(t, threads > 1, report.Multithreaded)

			dir := report.Entries[0]
			assert.False(t, dir.Encrypted())
			assert.Equal(t, format.MethodStore, dir.Method)

			for _, e := range report.Entries[1:] {
				assert.True(t, e.Encrypted())
				assert.Equal(t, format.MethodWzAES, e.Method)
				assert.Equal(t, format.MethodStore, e.RealMethod())
				assert.Zero(t, e.CRC32)
				assert.GreaterOrEqual(t, e.ExtractVersion, format.VersionAES)
			}

			prior, err := archive.OpenPrior(bytes.NewReader(b), int64(len(b)))
			require.NoError(t, err)
			require.Len(t, prior.Entries, 3)
		})
	}
}
