package update

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/internal/pool"
	"github.com/arloliu/mezip/progress"
)

// job is one item handed to a worker.
type job struct {
	index   int
	item    *Item
	stream  io.ReadCloser
	promote chan io.Writer // cap 1, fresh per job
}

// completion is sent by a worker on the shared done channel.
type completion struct {
	worker int
	index  int
	result compress.Result
	output Output
	err    error
}

// worker compresses one item at a time into a workerSink.
type worker struct {
	id         int
	work       chan *job
	done       chan<- completion
	abort      <-chan struct{}
	pool       *pool.BlockPool
	compressor *compress.Compressor
	slot       *progress.Slot
	logger     zerolog.Logger
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range w.work {
		w.done <- w.compress(j)
	}
}

func (w *worker) compress(j *job) completion {
	c := completion{worker: w.id, index: j.index}

	w.slot.Reset()
	sink := newWorkerSink(w.pool, j.promote, w.abort)
	res, err := w.compressor.Compress(j.stream, sink, w.slot)
	if closeErr := j.stream.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close source: %w", closeErr)
	}
	if err != nil {
		sink.release()
		if sink.err == nil {
			err = fmt.Errorf("%w: %q: %w", errs.ErrCodecFailure, j.item.Name, err)
		}
		c.err = err

		return c
	}

	c.result = res
	c.output = sink.output()
	w.logger.Trace().
		Int("worker", w.id).
		Int("index", j.index).
		Uint64("packed", res.PackSize).
		Msg("job completed")

	return c
}
