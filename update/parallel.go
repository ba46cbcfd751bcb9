package update

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/arloliu/mezip/compress"
	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/internal/pool"
)

// parallel drives the workers of a multithreaded run.
//
// Items are dispatched in order from the lookahead cursor next, while head
// is the next item the archive expects. The head job is promoted to write
// straight into the archive; jobs finishing ahead of it wait in the reorder
// buffer with their pool blocks.
type parallel struct {
	*run

	workers []*worker
	free    []int
	done    chan completion
	abort   chan struct{}
	wg      sync.WaitGroup

	next    int
	running map[int]*job
	skipped map[int]error
	reorder *reorderBuffer
}

func (r *run) runParallel() error {
	n := r.report.FileThreads
	p := &parallel{
		run:     r,
		workers: make([]*worker, n),
		free:    make([]int, 0, n),
		done:    make(chan completion, n),
		abort:   make(chan struct{}),
		running: make(map[int]*job),
		skipped: make(map[int]error),
		reorder: newReorderBuffer(),
	}

	for i := range p.workers {
		p.workers[i] = &worker{
			id:         i,
			work:       make(chan *job, 1),
			done:       p.done,
			abort:      p.abort,
			pool:       r.pool,
			compressor: r.compressor,
			slot:       r.agg.Slot(i),
			logger:     r.logger,
		}
		p.wg.Add(1)
		go p.workers[i].run(&p.wg)
	}
	// lowest worker ids are handed out first
	for i := n - 1; i >= 0; i-- {
		p.free = append(p.free, i)
	}
	defer p.shutdown()

	err := p.loop()
	if err != nil {
		p.recordPendingSkips()
	}

	return err
}

// recordPendingSkips lists the skips found by lookahead dispatch that the
// head never reached before the run aborted.
func (p *parallel) recordPendingSkips() {
	for _, i := range slices.Sorted(maps.Keys(p.skipped)) {
		cause := p.skipped[i]
		delete(p.skipped, i)
		if err := p.recordSkip(i, cause); err != nil {
			p.logger.Debug().Err(err).Int("index", i).Msg("report skipped item")
		}
	}
}

func (p *parallel) loop() error {
	for head := range p.plan.steps {
		if err := p.checkCancel(); err != nil {
			return err
		}
		if err := p.dispatch(); err != nil {
			return err
		}
		if p.next >= len(p.plan.steps) {
			p.setState(StateDraining)
		}

		if err := p.flushHead(head); err != nil {
			return err
		}
	}

	return nil
}

func (p *parallel) flushHead(head int) error {
	if p.plan.steps[head].action != actionCompress {
		return p.flushInline(head)
	}

	if cause, ok := p.skipped[head]; ok {
		delete(p.skipped, head)
		return p.skip(head, cause)
	}

	if e, ok := p.reorder.take(head); ok {
		p.report.Reordered++
		p.logger.Trace().
			Int("index", head).
			Int("blocks", e.chain.Blocks()).
			Int("waiting", p.reorder.len()).
			Msg("replay buffered item")

		return p.writeBuffered(head, e.result, e.chain)
	}

	j, ok := p.running[head]
	if !ok {
		return fmt.Errorf("%w: item %d was never dispatched", errs.ErrWriterState, head)
	}

	return p.promoteAndWait(head, j)
}

// dispatch hands lookahead items to free workers.
func (p *parallel) dispatch() error {
	for len(p.free) > 0 && p.next < len(p.plan.steps) {
		i := p.next
		p.next++

		if p.plan.steps[i].action != actionCompress {
			continue
		}
		if err := p.checkCancel(); err != nil {
			return err
		}

		var stream io.ReadCloser
		err := p.agg.Locked(func() error {
			var err error
			stream, err = p.src.GetStream(p.ctx, i, &p.items[i])

			return err
		})
		if err != nil || stream == nil {
			if err == nil {
				err = fmt.Errorf("%w: nil stream", errs.ErrSourceUnavailable)
			}
			if !isUnavailable(err) {
				return fmt.Errorf("open %q: %w", p.items[i].Name, err)
			}
			p.skipped[i] = err

			continue
		}

		w := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]

		j := &job{
			index:   i,
			item:    &p.items[i],
			stream:  stream,
			promote: make(chan io.Writer, 1),
		}
		p.running[i] = j
		p.workers[w].work <- j
	}

	return nil
}

// promoteAndWait reserves the head entry, lets its worker write directly
// into the archive and waits for it. Completions of other jobs arriving
// meanwhile go to the reorder buffer and their workers get new items.
func (p *parallel) promoteAndWait(head int, j *job) error {
	ph, err := p.aw.Reserve(p.plan.steps[head].info)
	if err != nil {
		return err
	}
	d, err := p.aw.OpenDirect(ph)
	if err != nil {
		return err
	}
	j.promote <- d

	for {
		var c completion
		select {
		case c = <-p.done:
		case <-p.ctx.Done():
			return p.checkCancel()
		}

		p.retire(c)
		if c.err != nil {
			return c.err
		}

		if c.index != head {
			if err := p.reorder.put(c); err != nil {
				return err
			}
			if err := p.dispatch(); err != nil {
				return err
			}

			continue
		}

		if out, ok := c.output.(Buffered); ok {
			_, err := out.Chain.WriteTo(d)
			out.Chain.Release()
			if err != nil {
				return err
			}
		}
		if _, err := p.aw.CloseDirect(d); err != nil {
			return err
		}

		return p.finalize(head, ph, c.result)
	}
}

// writeBuffered writes a reorder entry at the archive head.
func (p *parallel) writeBuffered(head int, res compress.Result, chain *pool.Chain) error {
	defer chain.Release()

	ph, err := p.aw.Reserve(p.plan.steps[head].info)
	if err != nil {
		return err
	}
	d, err := p.aw.OpenDirect(ph)
	if err != nil {
		return err
	}
	if _, err := chain.WriteTo(d); err != nil {
		return err
	}
	if _, err := p.aw.CloseDirect(d); err != nil {
		return err
	}

	return p.finalize(head, ph, res)
}

// retire frees the worker of c.
func (p *parallel) retire(c completion) {
	delete(p.running, c.index)
	p.free = append(p.free, c.worker)
}

// shutdown stops the workers and returns every buffered block.
func (p *parallel) shutdown() {
	close(p.abort)
	for _, w := range p.workers {
		close(w.work)
	}
	p.wg.Wait()

	close(p.done)
	for c := range p.done {
		if out, ok := c.output.(Buffered); ok {
			out.Chain.Release()
		}
	}
	p.reorder.releaseAll()
}
