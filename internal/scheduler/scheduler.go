// SPDX-License-Identifier: MIT

// Package scheduler runs spectrogram requests off the caller's goroutine and
// keeps only the newest one.
//
// Every Submit takes a new generation number. Results come back in whatever
// order the backend finishes them; a result is handed to the Sink only if its
// generation is still the latest one issued. Older results are dropped
// without notice, so a slow request never overwrites a newer image.
//
// If no backend is configured, or it refuses the job, the request is computed
// inline on the submitting goroutine. If the backend accepts the job but then
// fails, the request is recomputed inline once before being reported as
// failed.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	applog "specview/internal/log"
	"specview/internal/spectrogram"
)

var (
	// ErrUnavailable is returned by a Backend that cannot take work. The
	// scheduler treats it as a cue to compute inline, not as a failure.
	ErrUnavailable = errors.New("scheduler: backend unavailable")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("scheduler: closed")
	// ErrWorkerCrashed wraps a panic recovered on a worker goroutine.
	ErrWorkerCrashed = errors.New("scheduler: worker crashed")
	// ErrReplaced marks a queued job that a newer one displaced before it
	// started.
	ErrReplaced = errors.New("scheduler: replaced before start")
)

// State is the lifecycle position of the most recent request.
type State int

const (
	Idle State = iota
	Computing
	Delivered
	Superseded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Computing:
		return "computing"
	case Delivered:
		return "delivered"
	case Superseded:
		return "superseded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request is one unit of work. The Samples slice belongs to whoever is
// computing the request.
type Request struct {
	Generation uint64
	Samples    []float32
	Options    spectrogram.Options
}

// Result is what a backend reports for a Request.
type Result struct {
	Generation uint64
	Image      *spectrogram.Image
	Err        error
}

// Job bundles a request with the computation to run and the callback that
// receives its outcome. Backends must call Done at most once.
type Job struct {
	Request Request
	Run     func(Request) (*spectrogram.Image, error)
	Done    func(Result)
}

// Backend executes jobs somewhere other than the submitting goroutine.
type Backend interface {
	// Dispatch hands the job over. Returning an error means the job was not
	// accepted and Done will not be called.
	Dispatch(job Job) error
	// Close stops the backend. Jobs still running are abandoned.
	Close() error
}

// Sink receives the state transitions the outside world cares about. Calls
// are serialised and arrive in the order the scheduler decided them. A Sink
// must not call back into the Scheduler that drives it.
type Sink interface {
	Loading(generation uint64)
	Deliver(generation uint64, img *spectrogram.Image)
	Fail(generation uint64, err error)
}

// Stats counts what happened to submitted requests.
type Stats struct {
	Submitted  uint64
	Delivered  uint64
	Superseded uint64
	Failed     uint64
	Inline     uint64 // computed inline because no backend took the job
	Fallbacks  uint64 // recomputed inline after a backend failure
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFallback enables or disables the inline recompute after a backend
// failure. It is enabled by default.
func WithFallback(enabled bool) Option {
	return func(s *Scheduler) {
		s.fallback = enabled
	}
}

// Scheduler owns the generation counter for one audio source.
type Scheduler struct {
	backend  Backend
	sink     Sink
	cmap     spectrogram.ColorMap
	fallback bool

	generation atomic.Uint64

	mu     sync.Mutex // guards state, stats, closed
	sinkMu sync.Mutex // serialises sink calls
	state  State
	stats  Stats
	closed bool
}

// New creates a scheduler. backend may be nil, in which case every request
// is computed inline.
func New(backend Backend, sink Sink, cmap spectrogram.ColorMap, opts ...Option) *Scheduler {
	s := &Scheduler{
		backend:  backend,
		sink:     sink,
		cmap:     cmap,
		fallback: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if backend == nil {
		applog.Infof("Scheduler: No worker backend, requests will be computed inline")
	}
	return s
}

// Submit takes ownership of buf's samples and starts a new request. It
// returns the request's generation. Failures of the computation itself are
// reported to the Sink, not returned; Submit errors only if the buffer was
// already detached or the scheduler is closed.
//
// When the request runs inline Submit blocks until it has settled.
func (s *Scheduler) Submit(buf *spectrogram.SampleBuffer, opts spectrogram.Options) (uint64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	samples, err := buf.Detach()
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}

	gen := s.generation.Add(1)
	s.state = Computing
	s.stats.Submitted++
	applog.Debugf("Scheduler: Generation %d submitted (%d samples, fft %d, hop %d)",
		gen, len(samples), opts.FFTSize, opts.HopSize)
	s.notifyLocked(func(sink Sink) { sink.Loading(gen) })

	req := Request{Generation: gen, Samples: samples, Options: opts}

	if s.backend != nil {
		err := s.backend.Dispatch(Job{
			Request: req,
			Run:     s.compute,
			Done:    func(res Result) { s.complete(req, res) },
		})
		if err == nil {
			return gen, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			applog.Warnf("Scheduler: Dispatch of generation %d failed, computing inline: %v", gen, err)
		}
	}

	s.mu.Lock()
	s.stats.Inline++
	s.mu.Unlock()

	img, err := s.safeCompute(req)
	s.settle(Result{Generation: gen, Image: img, Err: err})
	return gen, nil
}

// compute is the single rasterization path shared by backends and the
// inline route.
func (s *Scheduler) compute(req Request) (*spectrogram.Image, error) {
	return spectrogram.Rasterize(req.Samples, req.Options, s.cmap)
}

// safeCompute runs compute on the calling goroutine, turning a panic into
// an ErrWorkerCrashed result so the request still settles.
func (s *Scheduler) safeCompute(req Request) (img *spectrogram.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: %v", ErrWorkerCrashed, r)
		}
	}()
	return s.compute(req)
}

// complete handles a result coming back from the backend.
func (s *Scheduler) complete(req Request, res Result) {
	if res.Err != nil && s.fallback && s.isCurrent(res.Generation) {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			applog.Debugf("Scheduler: Generation %d failed after close, abandoned", res.Generation)
			return
		}
		s.stats.Fallbacks++
		s.mu.Unlock()

		applog.Warnf("Scheduler: Worker failed on generation %d, recomputing inline: %v", res.Generation, res.Err)
		img, err := s.safeCompute(req)
		res = Result{Generation: req.Generation, Image: img, Err: err}
	}
	s.settle(res)
}

// settle applies a finished result if it is still the latest request.
func (s *Scheduler) settle(res Result) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		applog.Debugf("Scheduler: Generation %d finished after close, abandoned", res.Generation)
		return
	}

	if res.Generation != s.generation.Load() {
		s.stats.Superseded++
		s.mu.Unlock()
		applog.Debugf("Scheduler: Generation %d superseded, result dropped", res.Generation)
		return
	}

	if res.Err != nil {
		s.state = Failed
		s.stats.Failed++
		applog.Errorf("Scheduler: Generation %d failed: %v", res.Generation, res.Err)
		s.notifyLocked(func(sink Sink) { sink.Fail(res.Generation, res.Err) })
		return
	}

	s.state = Delivered
	s.stats.Delivered++
	applog.Debugf("Scheduler: Generation %d delivered (%dx%d)", res.Generation, res.Image.Width, res.Image.Height)
	s.notifyLocked(func(sink Sink) { sink.Deliver(res.Generation, res.Image) })
}

// notifyLocked must be called with s.mu held; it releases s.mu. The sink
// lock is taken before s.mu is dropped, so sink calls keep the order in
// which they were decided while State and Stats stay readable.
func (s *Scheduler) notifyLocked(fn func(Sink)) {
	s.sinkMu.Lock()
	s.mu.Unlock()
	defer s.sinkMu.Unlock()

	if s.sink != nil {
		fn(s.sink)
	}
}

func (s *Scheduler) isCurrent(gen uint64) bool {
	return gen == s.generation.Load()
}

// Generation returns the number of the most recently submitted request.
func (s *Scheduler) Generation() uint64 {
	return s.generation.Load()
}

// State returns the lifecycle state of the most recent request. A request
// replaced by a newer submission is never reported here; its replacement's
// state is.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the request counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close stops the backend. Requests still in flight are abandoned and never
// reach the Sink. Close is idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = Idle
	s.mu.Unlock()

	if s.backend != nil {
		return s.backend.Close()
	}
	return nil
}
