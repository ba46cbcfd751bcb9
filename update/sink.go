package update

import (
	"io"

	"github.com/arloliu/mezip/errs"
	"github.com/arloliu/mezip/internal/pool"
)

// Output is the result of one worker job: Buffered or Direct.
type Output interface {
	isOutput()
}

// Buffered holds the whole compressed payload in pool blocks.
type Buffered struct {
	Chain *pool.Chain
}

// Direct reports that the payload went to the archive after promotion.
// Written includes the replayed buffered prefix.
type Direct struct {
	Written int64
}

func (Buffered) isOutput() {}
func (Direct) isOutput()   {}

// workerSink receives the codec output of one job.
//
// It fills pool blocks until the coordinator promotes the job to the archive
// head. A sink that runs out of blocks waits for a released block, for the
// promotion, or for the run to abort, so it never holds more than the pool owns.
type workerSink struct {
	pool    *pool.BlockPool
	chain   *pool.Chain
	promote <-chan io.Writer
	abort   <-chan struct{}
	direct  io.Writer
	written int64
	err     error
}

func newWorkerSink(p *pool.BlockPool, promote <-chan io.Writer, abort <-chan struct{}) *workerSink {
	return &workerSink{
		pool:    p,
		chain:   p.NewChain(),
		promote: promote,
		abort:   abort,
	}
}

// Write implements io.Writer.
func (s *workerSink) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}

	select {
	case <-s.abort:
		s.err = errs.ErrSinkAborted
		return 0, s.err
	default:
	}

	if s.direct == nil {
		select {
		case w := <-s.promote:
			if err := s.switchTo(w); err != nil {
				return 0, err
			}
		default:
		}
	}
	if s.direct != nil {
		return s.writeDirect(p)
	}

	total := 0
	for {
		n, err := s.chain.Write(p)
		p = p[n:]
		total += n
		if err == nil {
			return total, nil
		}

		// pool exhausted: wait for a block, promotion or abort
		select {
		case b := <-s.pool.Available():
			s.chain.Adopt(b)
		case w := <-s.promote:
			if err := s.switchTo(w); err != nil {
				return total, err
			}
			n, err := s.writeDirect(p)

			return total + n, err
		case <-s.abort:
			s.err = errs.ErrSinkAborted
			return total, s.err
		}
	}
}

func (s *workerSink) writeDirect(p []byte) (int, error) {
	n, err := s.direct.Write(p)
	s.written += int64(n)
	if err != nil {
		s.err = err
	}

	return n, err
}

// switchTo replays the buffered prefix into w and sends further output there.
func (s *workerSink) switchTo(w io.Writer) error {
	n, err := s.chain.WriteTo(w)
	s.written += n
	s.chain.Release()
	s.direct = w
	if err != nil {
		s.err = err
	}

	return err
}

// output returns the job result. The sink must not be written afterwards.
func (s *workerSink) output() Output {
	if s.direct != nil {
		return Direct{Written: s.written}
	}

	return Buffered{Chain: s.chain}
}

// release returns buffered blocks of a failed job.
func (s *workerSink) release() {
	s.chain.Release()
}
