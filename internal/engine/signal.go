package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeblew999/plat-pestmap/internal/metrics"
)

// DefaultRenderTimeout bounds how long a refresh waits for its render.
const DefaultRenderTimeout = 3 * time.Second

// Outcome tells a waiter how its render signal resolved.
type Outcome int

const (
	// Completed means a render of this generation (or newer) finished.
	Completed Outcome = iota
	// TimedOut means the safety timeout fired first; the caller proceeds anyway.
	TimedOut
)

func (o Outcome) String() string {
	if o == TimedOut {
		return "timeout"
	}
	return "completed"
}

// RenderSignal resolves at most once, either when a render of its generation
// or a newer one completes or when the timeout elapses.
type RenderSignal struct {
	generation uint64
	done       chan struct{}
	once       sync.Once
	outcome    atomic.Int32
}

// newRenderSignal starts the timeout. onTimeout, if set, runs after the
// signal resolves as TimedOut.
func newRenderSignal(gen uint64, timeout time.Duration, onTimeout func(*RenderSignal)) *RenderSignal {
	s := &RenderSignal{generation: gen, done: make(chan struct{})}
	go func() {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-t.C:
			if s.resolve(TimedOut) && onTimeout != nil {
				onTimeout(s)
			}
		case <-s.done:
		}
	}()
	return s
}

func (s *RenderSignal) resolve(o Outcome) bool {
	resolved := false
	s.once.Do(func() {
		s.outcome.Store(int32(o))
		close(s.done)
		resolved = true
		metrics.RenderSignalsTotal.WithLabelValues(o.String()).Inc()
	})
	return resolved
}

// Generation returns the model generation this signal waits for.
func (s *RenderSignal) Generation() uint64 { return s.generation }

// Done is closed once the signal resolves.
func (s *RenderSignal) Done() <-chan struct{} { return s.done }

// Outcome returns how the signal resolved; only meaningful after Done.
func (s *RenderSignal) Outcome() Outcome { return Outcome(s.outcome.Load()) }

// Wait blocks until the signal resolves or ctx ends.
func (s *RenderSignal) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.Outcome(), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
