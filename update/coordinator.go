package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/arloliu/mezip/archive"
	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/format"
	"github.com/arloliu/mezip/internal/options"
	"github.com/arloliu/mezip/internal/pool"
	"github.com/arloliu/mezip/progress"
	"github.com/arloliu/mezip/section"
)

// Coordinator writes an archive from an ordered list of items.
//
// A Coordinator may be reused for several runs, one at a time.
type Coordinator struct {
	cfg     *Config
	state   atomic.Uint32
	running atomic.Bool
}

// NewCoordinator creates a coordinator.
//
// Parameters:
//   - opts: Options; defaults are runtime.NumCPU threads, 32MiB per thread,
//     64KiB blocks and deflate
//
// Returns:
//   - *Coordinator: Coordinator in the idle state
//   - error: errs.ErrInvalidConfig for invalid option values
func NewCoordinator(opts ...Option) (*Coordinator, error) {
	cfg := defaultConfig()
	if err := options.ApplyAndValidate(cfg, opts...); err != nil {
		return nil, err
	}

	return &Coordinator{cfg: cfg}, nil
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	old := State(c.state.Swap(uint32(s)))
	if old != s {
		c.cfg.Logger.Debug().
			Stringer("from", old).
			Stringer("to", s).
			Msg("coordinator state")
	}
}

// Run writes items to out in order and returns the run report.
//
// Entries appear in out in item order whatever the thread count. Items whose
// stream is unavailable are skipped and listed in Report.Failures. Any other
// error aborts the run with a *RunError; out then holds a partial archive.
func (c *Coordinator) Run(ctx context.Context, out io.WriteSeeker, items []Item, src Source) (*Report, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: run already in progress", errs.ErrUnsupportedOperation)
	}
	defer c.running.Store(false)

	c.setState(StateEstimating)

	r, err := c.prepare(ctx, out, items, src)
	if err != nil {
		return nil, c.fail(nil, err)
	}
	if err := r.execute(); err != nil {
		return nil, c.fail(r, err)
	}

	c.setState(StateDone)
	c.cfg.Logger.Info().
		Int("entries", len(r.report.Entries)).
		Int("skipped", r.report.Skipped).
		Bool("multithreaded", r.report.Multithreaded).
		Int("file_threads", r.report.FileThreads).
		Int("codec_threads", r.report.CodecThreads).
		Msg("archive written")

	return r.report, nil
}

func (c *Coordinator) fail(r *run, err error) error {
	state := StateFailed
	if errors.Is(err, errs.ErrCancelled) {
		state = StateCancelled
	}
	c.setState(state)
	c.cfg.Logger.Error().Err(err).Stringer("state", state).Msg("update aborted")

	re := &RunError{Err: err}
	if r != nil {
		re.Failures = r.report.Failures
	}

	return re
}

// run is the state of one Coordinator.Run call.
type run struct {
	ctx        context.Context //nolint: containedctx
	cfg        *Config
	logger     zerolog.Logger
	setState   func(State)
	items      []Item
	src        Source
	plan       *plan
	comment    []byte
	agg        *progress.Aggregator
	aw         *archive.Writer
	pool       *pool.BlockPool
	compressor *compress.Compressor
	report     *Report
}

func (c *Coordinator) prepare(ctx context.Context, out io.WriteSeeker, items []Item, src Source) (*run, error) {
	cfg := c.cfg

	comment := cfg.Comment
	if !cfg.CommentSet && cfg.Prior != nil {
		comment = cfg.Prior.Comment
	}

	p, err := resolve(items, cfg.Prior, comment)
	if err != nil {
		return nil, err
	}
	if p.compressItems > 0 && src == nil {
		return nil, fmt.Errorf("%w: items with new data need a source", errs.ErrInvalidConfig)
	}

	var codec compress.Codec
	if p.compressItems > 0 {
		if codec, err = cfg.Registry.Resolve(cfg.Methods); err != nil {
			return nil, err
		}
	}

	mt, fileThreads, codecThreads := decideMode(cfg, p, codec)

	r := &run{
		ctx:      ctx,
		cfg:      cfg,
		logger:   cfg.Logger,
		setState: c.setState,
		items:    items,
		src:      src,
		plan:     p,
		comment:  comment,
		report: &Report{
			Multithreaded: mt,
			FileThreads:   fileThreads,
			CodecThreads:  codecThreads,
		},
	}

	slots := 1
	if mt {
		slots = fileThreads + 1
		r.pool, err = pool.NewBlockPool(fileThreads, cfg.MemoryPerThread, cfg.BlockSize, cfg.MaxReservation)
		if err != nil {
			return nil, err
		}
		r.report.BlockCapacity = r.pool.Capacity()
	}
	r.agg = progress.NewAggregator(cfg.Progress, slots)

	if codec != nil {
		r.compressor = compress.NewCompressor(codec, cfg.Level, codecThreads)
	}

	var wopts []archive.WriterOption
	if cfg.Encryption {
		wopts = append(wopts, archive.WithEncryption(cfg.AESStrength))
	}
	if r.aw, err = archive.NewWriter(out, wopts...); err != nil {
		return nil, err
	}

	r.logger.Debug().
		Int("items", len(items)).
		Int("names", p.names).
		Int("compress_items", p.compressItems).
		Uint64("total", p.total).
		Bool("multithreaded", mt).
		Int("file_threads", fileThreads).
		Int("codec_threads", codecThreads).
		Msg("update planned")
	if p.nameCollision {
		r.logger.Warn().Msg("distinct entry names share a name id")
	}

	return r, nil
}

// decideMode chooses between serial and parallel compression and splits the
// thread budget between workers and codec goroutines.
func decideMode(cfg *Config, p *plan, codec compress.Encoder) (mt bool, fileThreads, codecThreads int) {
	threads := min(max(cfg.Threads, 1), MaxThreads)
	parallelCodec := codec != nil && codec.ConcurrencyUnit() > 0

	fileThreads, codecThreads = threads, 1
	mt = threads > 1 && p.compressItems > 1

	if mt && codec.Method() == format.MethodStore && !cfg.Encryption {
		mt = false
	}
	if mt && parallelCodec {
		fileThreads, codecThreads = cfg.SplitPolicy(threads, SizeProfile{
			Items:      p.compressItems,
			TotalBytes: p.compressBytes,
			Unit:       codec.ConcurrencyUnit(),
		})
		fileThreads = min(fileThreads, threads)
		codecThreads = max(codecThreads, 1)
		if fileThreads <= 1 {
			mt = false
		}
	}

	if !mt {
		fileThreads, codecThreads = 1, 1
		if parallelCodec {
			codecThreads = threads
		}

		return mt, fileThreads, codecThreads
	}

	return mt, min(fileThreads, p.compressItems), codecThreads
}

func (r *run) execute() error {
	if err := r.agg.SetTotal(r.plan.total); err != nil {
		return err
	}

	if prior := r.cfg.Prior; prior != nil && prior.PrefixSize > 0 {
		if err := r.aw.CopyPrefix(prior.ReaderAt(), prior.PrefixSize); err != nil {
			return err
		}
		if err := r.agg.Add(uint64(prior.PrefixSize)); err != nil {
			return err
		}
	}

	r.setState(StateDispatching)

	var err error
	if r.report.Multithreaded {
		err = r.runParallel()
		r.report.PeakBlocks = r.pool.Peak()
	} else {
		err = r.runSerial()
	}
	if err != nil {
		return err
	}

	r.setState(StateDraining)
	if err := r.aw.WriteDirectory(r.comment); err != nil {
		return err
	}
	tail := uint64(len(r.items))*section.CentralHeaderSize + uint64(len(r.comment)) + section.EndOfCentralSize
	if err := r.agg.Add(tail); err != nil {
		return err
	}
	if err := r.agg.Finish(); err != nil {
		return err
	}

	r.report.Entries = r.aw.Entries()

	return nil
}

func (r *run) checkCancel() error {
	if err := r.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCancelled, err)
	}

	return nil
}

// locked runs fn under the progress lock in multithreaded mode.
func (r *run) locked(fn func() error) error {
	if r.report.Multithreaded {
		return r.agg.Locked(fn)
	}

	return fn()
}

func (r *run) runSerial() error {
	for i := range r.plan.steps {
		if err := r.checkCancel(); err != nil {
			return err
		}

		var err error
		if r.plan.steps[i].action == actionCompress {
			err = r.compressSerial(i)
		} else {
			err = r.flushInline(i)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *run) compressSerial(i int) error {
	item := &r.items[i]

	stream, err := r.src.GetStream(r.ctx, i, item)
	if err != nil || stream == nil {
		return r.openFailed(i, err)
	}

	ph, err := r.aw.Reserve(r.plan.steps[i].info)
	if err != nil {
		_ = stream.Close()
		return err
	}
	d, err := r.aw.OpenDirect(ph)
	if err != nil {
		_ = stream.Close()
		return err
	}

	slot := r.agg.Slot(r.agg.Slots() - 1)
	slot.Reset()
	res, cerr := r.compressor.Compress(stream, d, slot)
	closeErr := stream.Close()

	if _, err := r.aw.CloseDirect(d); err != nil {
		return err
	}
	if cerr != nil {
		return fmt.Errorf("%w: %q: %w", errs.ErrCodecFailure, item.Name, cerr)
	}
	if closeErr != nil {
		return fmt.Errorf("close source %q: %w", item.Name, closeErr)
	}

	return r.finalize(i, ph, res)
}

// openFailed skips item i when its stream is unavailable and returns any
// other error.
func (r *run) openFailed(i int, err error) error {
	if err == nil {
		err = fmt.Errorf("%w: nil stream", errs.ErrSourceUnavailable)
	}
	if isUnavailable(err) {
		return r.skip(i, err)
	}

	return fmt.Errorf("open %q: %w", r.items[i].Name, err)
}

// skip records item i as skipped and credits its estimated progress.
func (r *run) skip(i int, cause error) error {
	if err := r.recordSkip(i, cause); err != nil {
		return err
	}

	return r.agg.Add(r.plan.steps[i].cost)
}

// recordSkip lists item i as a failure and reports it to the source.
func (r *run) recordSkip(i int, cause error) error {
	item := &r.items[i]

	r.report.Failures = append(r.report.Failures, Failure{Index: i, Name: item.Name, Err: cause})
	r.report.Skipped++
	r.logger.Warn().Err(cause).Int("index", i).Str("name", item.Name).Msg("item skipped")

	return r.locked(func() error {
		return r.src.ReportResult(i, item, OutcomeSkipped)
	})
}

// flushInline writes an item that needs no codec: directories and reused entries.
func (r *run) flushInline(i int) error {
	st := &r.plan.steps[i]

	var err error
	switch st.action {
	case actionDirectory:
		var ph *archive.Placeholder
		if ph, err = r.aw.Reserve(st.info); err == nil {
			_, err = r.aw.Finalize(ph, directoryResult)
		}
	case actionCopy:
		_, err = r.aw.CopyEntry(r.cfg.Prior, st.prior)
	case actionRename:
		_, err = r.aw.CopyRenamed(r.cfg.Prior, st.prior, st.info)
	default:
		err = fmt.Errorf("%w: item %d needs compression", errs.ErrWriterState, i)
	}
	if err != nil {
		return fmt.Errorf("item %d (%q): %w", i, st.info.Name, err)
	}

	if st.action == actionDirectory {
		if err := r.reportOK(i); err != nil {
			return err
		}
	}

	return r.agg.Add(st.cost)
}

// finalize backpatches the entry of item i and credits the estimate the
// codec progress did not cover.
func (r *run) finalize(i int, ph *archive.Placeholder, res compress.Result) error {
	if _, err := r.aw.Finalize(ph, res); err != nil {
		return fmt.Errorf("item %d (%q): %w", i, r.items[i].Name, err)
	}
	if err := r.reportOK(i); err != nil {
		return err
	}

	return r.agg.Add(r.plan.steps[i].cost - min(res.UnpackSize, r.items[i].Size))
}

func (r *run) reportOK(i int) error {
	if r.src == nil {
		return nil
	}

	return r.locked(func() error {
		return r.src.ReportResult(i, &r.items[i], OutcomeOK)
	})
}

func isUnavailable(err error) bool {
	return errors.Is(err, errs.ErrSourceUnavailable)
}
