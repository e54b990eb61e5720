// SPDX-License-Identifier: MIT
package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"specview/internal/spectrogram"
	"specview/pkg/utils"
)

const testSampleRate = 8000

func grayMap(db, minDB, maxDB float64) (r, g, b, a uint8) {
	v := uint8(255 * (db - minDB) / (maxDB - minDB))
	return v, v, v, 255
}

func testOptions(fftSize int) spectrogram.Options {
	opts := spectrogram.DefaultOptions(testSampleRate)
	opts.FFTSize = fftSize
	opts.HopSize = fftSize / 2
	return opts
}

func toneBuffer(frequency float64) *spectrogram.SampleBuffer {
	return spectrogram.NewSampleBuffer(utils.GenerateSineWave(4096, testSampleRate, frequency, 0.5))
}

// heldBackend accepts every job and keeps it until the test releases it, so
// completion order is under test control.
type heldBackend struct {
	mu     sync.Mutex
	jobs   map[uint64]Job
	refuse error
	closed bool
}

func newHeldBackend() *heldBackend {
	return &heldBackend{jobs: make(map[uint64]Job)}
}

func (h *heldBackend) Dispatch(job Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refuse != nil {
		return h.refuse
	}
	h.jobs[job.Request.Generation] = job
	return nil
}

func (h *heldBackend) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}

func (h *heldBackend) take(t *testing.T, gen uint64) Job {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	job, ok := h.jobs[gen]
	if !ok {
		t.Fatalf("no job held for generation %d", gen)
	}
	delete(h.jobs, gen)
	return job
}

// release runs the held job and reports its real result.
func (h *heldBackend) release(t *testing.T, gen uint64) {
	job := h.take(t, gen)
	img, err := job.Run(job.Request)
	job.Done(Result{Generation: gen, Image: img, Err: err})
}

// crash reports a worker failure without running the job.
func (h *heldBackend) crash(t *testing.T, gen uint64, err error) {
	job := h.take(t, gen)
	job.Done(Result{Generation: gen, Err: err})
}

func drain(sink *ChannelSink) []Event {
	var events []Event
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func settled(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind != EventLoading {
			out = append(out, ev)
		}
	}
	return out
}

func mustSubmit(t *testing.T, s *Scheduler, buf *spectrogram.SampleBuffer, opts spectrogram.Options) uint64 {
	t.Helper()
	gen, err := s.Submit(buf, opts)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return gen
}

func TestStaleResultDiscarded(t *testing.T) {
	orders := []struct {
		name  string
		first uint64
	}{
		{"OlderFinishesLast", 2},
		{"OlderFinishesFirst", 1},
	}

	for _, order := range orders {
		t.Run(order.name, func(t *testing.T) {
			backend := newHeldBackend()
			sink := NewChannelSink(16)
			s := New(backend, sink, grayMap)

			genA := mustSubmit(t, s, toneBuffer(440), testOptions(256))
			genB := mustSubmit(t, s, toneBuffer(880), testOptions(512))
			if genA != 1 || genB != 2 {
				t.Fatalf("generations = %d, %d; want 1, 2", genA, genB)
			}

			second := uint64(3) - order.first
			backend.release(t, order.first)
			backend.release(t, second)

			got := settled(drain(sink))
			if len(got) != 1 {
				t.Fatalf("settled events = %d, want exactly 1: %+v", len(got), got)
			}
			ev := got[0]
			if ev.Kind != EventDelivered || ev.Generation != genB {
				t.Fatalf("event = %v gen %d, want delivered gen %d", ev.Kind, ev.Generation, genB)
			}
			if ev.Image.Height != 256 {
				t.Errorf("delivered image height = %d, want 256 (request B)", ev.Image.Height)
			}

			if s.State() != Delivered {
				t.Errorf("State() = %v, want delivered", s.State())
			}
			if st := s.Stats(); st.Superseded != 1 || st.Delivered != 1 {
				t.Errorf("Stats() = %+v, want 1 superseded and 1 delivered", st)
			}
		})
	}
}

func TestStaleFailureNotSurfaced(t *testing.T) {
	backend := newHeldBackend()
	sink := NewChannelSink(16)
	s := New(backend, sink, grayMap, WithFallback(false))

	mustSubmit(t, s, toneBuffer(440), testOptions(256))
	gen2 := mustSubmit(t, s, toneBuffer(440), testOptions(256))

	backend.crash(t, 1, errors.New("boom"))
	if got := settled(drain(sink)); len(got) != 0 {
		t.Fatalf("stale failure reached the sink: %+v", got)
	}
	if s.State() != Computing {
		t.Errorf("State() = %v, want computing", s.State())
	}

	backend.release(t, gen2)
	got := settled(drain(sink))
	if len(got) != 1 || got[0].Kind != EventDelivered {
		t.Fatalf("events = %+v, want one delivery", got)
	}
}

func TestLoadingSignalledPerSubmit(t *testing.T) {
	backend := newHeldBackend()
	sink := NewChannelSink(16)
	s := New(backend, sink, grayMap)

	mustSubmit(t, s, toneBuffer(440), testOptions(256))
	mustSubmit(t, s, toneBuffer(440), testOptions(256))

	events := drain(sink)
	if len(events) != 2 || events[0].Kind != EventLoading || events[1].Generation != 2 {
		t.Errorf("events = %+v, want loading for generations 1 and 2", events)
	}
	if s.State() != Computing {
		t.Errorf("State() = %v, want computing", s.State())
	}
}

func TestFallbackEquivalence(t *testing.T) {
	samples := utils.GenerateComplexWave(6000, testSampleRate)
	opts := testOptions(512)
	fresh := func() *spectrogram.SampleBuffer {
		return spectrogram.NewSampleBuffer(append([]float32(nil), samples...))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	worker := NewWorkerBackend()
	offloadSink := NewChannelSink(16)
	offloaded := New(worker, offloadSink, grayMap)
	defer offloaded.Close()
	gen := mustSubmit(t, offloaded, fresh(), opts)
	want, err := offloadSink.Wait(ctx, gen)
	if err != nil {
		t.Fatalf("offloaded request failed: %v", err)
	}

	backends := []struct {
		name    string
		backend Backend
	}{
		{"NilBackend", nil},
		{"Unavailable", &heldBackend{refuse: ErrUnavailable}},
		{"DispatchError", &heldBackend{refuse: errors.New("queue full")}},
	}

	for _, bc := range backends {
		t.Run(bc.name, func(t *testing.T) {
			sink := NewChannelSink(16)
			s := New(bc.backend, sink, grayMap)

			gen := mustSubmit(t, s, fresh(), opts)
			got := settled(drain(sink))
			if len(got) != 1 || got[0].Kind != EventDelivered || got[0].Generation != gen {
				t.Fatalf("inline events = %+v, want one delivery", got)
			}
			if !bytes.Equal(got[0].Image.Pixels, want.Pixels) {
				t.Error("inline pixels differ from offloaded pixels")
			}
			if s.Stats().Inline != 1 {
				t.Errorf("Stats().Inline = %d, want 1", s.Stats().Inline)
			}
		})
	}
}

func TestWorkerFailureFallsBackOnce(t *testing.T) {
	backend := newHeldBackend()
	sink := NewChannelSink(16)
	s := New(backend, sink, grayMap)

	gen := mustSubmit(t, s, toneBuffer(1000), testOptions(256))
	backend.crash(t, gen, ErrWorkerCrashed)

	got := settled(drain(sink))
	if len(got) != 1 || got[0].Kind != EventDelivered {
		t.Fatalf("events = %+v, want delivery from fallback", got)
	}

	reference, err := spectrogram.Rasterize(utils.GenerateSineWave(4096, testSampleRate, 1000, 0.5), testOptions(256), grayMap)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got[0].Image.Pixels, reference.Pixels) {
		t.Error("fallback image differs from direct rasterization")
	}
	if st := s.Stats(); st.Fallbacks != 1 || st.Delivered != 1 {
		t.Errorf("Stats() = %+v, want one fallback and one delivery", st)
	}
}

func TestFallbackDisabled(t *testing.T) {
	backend := newHeldBackend()
	sink := NewChannelSink(16)
	s := New(backend, sink, grayMap, WithFallback(false))

	gen := mustSubmit(t, s, toneBuffer(1000), testOptions(256))
	backend.crash(t, gen, ErrWorkerCrashed)

	got := settled(drain(sink))
	if len(got) != 1 || got[0].Kind != EventFailed || !errors.Is(got[0].Err, ErrWorkerCrashed) {
		t.Fatalf("events = %+v, want failure with ErrWorkerCrashed", got)
	}
	if s.Stats().Fallbacks != 0 {
		t.Errorf("Stats().Fallbacks = %d, want 0", s.Stats().Fallbacks)
	}
}

func TestFailureInBothPaths(t *testing.T) {
	bad := testOptions(256)
	bad.FFTSize = 300

	t.Run("Offloaded", func(t *testing.T) {
		backend := newHeldBackend()
		sink := NewChannelSink(16)
		s := New(backend, sink, grayMap)

		gen := mustSubmit(t, s, toneBuffer(440), bad)
		backend.release(t, gen)

		got := settled(drain(sink))
		if len(got) != 1 || got[0].Kind != EventFailed || got[0].Err == nil {
			t.Fatalf("events = %+v, want one failure", got)
		}
		if s.State() != Failed {
			t.Errorf("State() = %v, want failed", s.State())
		}
		if st := s.Stats(); st.Fallbacks != 1 || st.Failed != 1 {
			t.Errorf("Stats() = %+v, want one fallback then one failure", st)
		}
	})

	t.Run("Inline", func(t *testing.T) {
		sink := NewChannelSink(16)
		s := New(nil, sink, grayMap)

		mustSubmit(t, s, toneBuffer(440), bad)
		got := settled(drain(sink))
		if len(got) != 1 || got[0].Kind != EventFailed {
			t.Fatalf("events = %+v, want one failure", got)
		}
		if s.State() != Failed {
			t.Errorf("State() = %v, want failed", s.State())
		}
	})

	t.Run("Resubmit", func(t *testing.T) {
		sink := NewChannelSink(16)
		s := New(nil, sink, grayMap)

		mustSubmit(t, s, toneBuffer(440), bad)
		mustSubmit(t, s, toneBuffer(440), testOptions(256))
		if s.State() != Delivered {
			t.Errorf("State() after resubmit = %v, want delivered", s.State())
		}
	})
}

func TestSubmitDetachesBuffer(t *testing.T) {
	sink := NewChannelSink(16)
	s := New(nil, sink, grayMap)

	buf := toneBuffer(440)
	mustSubmit(t, s, buf, testOptions(256))
	if !buf.Detached() {
		t.Error("buffer still attached after Submit")
	}

	if _, err := s.Submit(buf, testOptions(256)); !errors.Is(err, spectrogram.ErrBufferDetached) {
		t.Errorf("second Submit() error = %v, want ErrBufferDetached", err)
	}
	if s.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", s.Generation())
	}
}

func TestCloseAbandonsInFlight(t *testing.T) {
	backend := newHeldBackend()
	sink := NewChannelSink(16)
	s := New(backend, sink, grayMap)

	gen := mustSubmit(t, s, toneBuffer(440), testOptions(256))
	drain(sink)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !backend.closed {
		t.Error("backend not closed")
	}

	backend.release(t, gen)
	if got := drain(sink); len(got) != 0 {
		t.Errorf("result delivered after close: %+v", got)
	}

	if _, err := s.Submit(toneBuffer(440), testOptions(256)); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWorkerPanicRecovered(t *testing.T) {
	var calls atomic.Int32
	flaky := func(db, minDB, maxDB float64) (r, g, b, a uint8) {
		if calls.Add(1) == 1 {
			panic("colour map exploded")
		}
		return grayMap(db, minDB, maxDB)
	}

	worker := NewWorkerBackend()
	sink := NewChannelSink(16)
	s := New(worker, sink, flaky)
	defer s.Close()

	gen := mustSubmit(t, s, toneBuffer(440), testOptions(256))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	img, err := sink.Wait(ctx, gen)
	if err != nil {
		t.Fatalf("Wait() error = %v, want recovery through fallback", err)
	}
	if img.Height != 128 {
		t.Errorf("image height = %d, want 128", img.Height)
	}
	if s.Stats().Fallbacks != 1 {
		t.Errorf("Stats().Fallbacks = %d, want 1", s.Stats().Fallbacks)
	}
}

func TestPersistentPanicSettlesAsFailed(t *testing.T) {
	broken := func(db, minDB, maxDB float64) (r, g, b, a uint8) {
		panic("colour map always fails")
	}

	t.Run("Worker", func(t *testing.T) {
		sink := NewChannelSink(16)
		s := New(NewWorkerBackend(), sink, broken)
		defer s.Close()

		gen := mustSubmit(t, s, toneBuffer(440), testOptions(256))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := sink.Wait(ctx, gen); !errors.Is(err, ErrWorkerCrashed) {
			t.Fatalf("Wait() error = %v, want ErrWorkerCrashed", err)
		}
		if s.State() != Failed {
			t.Errorf("State() = %v, want failed", s.State())
		}
		if st := s.Stats(); st.Fallbacks != 1 || st.Failed != 1 {
			t.Errorf("Stats() = %+v, want one fallback then one failure", st)
		}
	})

	t.Run("Inline", func(t *testing.T) {
		sink := NewChannelSink(16)
		s := New(nil, sink, broken)
		defer s.Close()

		mustSubmit(t, s, toneBuffer(440), testOptions(256))

		got := settled(drain(sink))
		if len(got) != 1 || got[0].Kind != EventFailed || !errors.Is(got[0].Err, ErrWorkerCrashed) {
			t.Fatalf("events = %+v, want one ErrWorkerCrashed failure", got)
		}
		if s.State() != Failed {
			t.Errorf("State() = %v, want failed", s.State())
		}
	})
}

func TestNoFallbackAfterClose(t *testing.T) {
	backend := newHeldBackend()
	sink := NewChannelSink(16)
	s := New(backend, sink, grayMap)

	gen := mustSubmit(t, s, toneBuffer(440), testOptions(256))
	drain(sink)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	backend.crash(t, gen, ErrWorkerCrashed)
	if got := drain(sink); len(got) != 0 {
		t.Errorf("events after close = %+v, want none", got)
	}
	if st := s.Stats(); st.Fallbacks != 0 {
		t.Errorf("Stats().Fallbacks = %d, want 0 after close", st.Fallbacks)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Idle: "idle", Computing: "computing", Delivered: "delivered",
		Superseded: "superseded", Failed: "failed",
	} {
		if state.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(state), state.String(), want)
		}
	}
}
