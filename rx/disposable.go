package rx

import (
	"sync"
	"sync/atomic"
)

// Disposable cancels a subscription.
type Disposable interface {
	// Dispose detaches the subscriber. It is safe to call more than once and
	// from any goroutine; only the first call has an effect.
	Dispose()

	// IsDisposed reports whether Dispose has been called.
	IsDisposed() bool
}

type funcDisposable struct {
	once     sync.Once
	disposed atomic.Bool
	fn       func()
}

// NewDisposable returns a Disposable that runs fn on the first Dispose call.
// fn may be nil.
func NewDisposable(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

func (d *funcDisposable) Dispose() {
	d.once.Do(func() {
		d.disposed.Store(true)
		if d.fn != nil {
			d.fn()
		}
	})
}

func (d *funcDisposable) IsDisposed() bool {
	return d.disposed.Load()
}

// Disposed returns a Disposable with nothing to release. Producers return it
// when the work they start has no cancellation hook.
func Disposed() Disposable {
	return NewDisposable(nil)
}

// sink is the bookkeeping shared by every subscription: a terminal latch, a
// disposed flag and the producer's own Disposable.
type sink struct {
	mu         sync.Mutex
	terminated bool
	disposed   atomic.Bool
	inner      Disposable
	innerOnce  sync.Once
}

// setInner records the Disposable returned by the producer. If the
// subscription was disposed or terminated while the producer was still
// running, the inner Disposable is released immediately.
func (s *sink) setInner(d Disposable) {
	if d == nil {
		d = Disposed()
	}
	s.mu.Lock()
	s.inner = d
	terminated := s.terminated
	s.mu.Unlock()
	if terminated || s.disposed.Load() {
		s.releaseInner()
	}
}

func (s *sink) releaseInner() {
	s.mu.Lock()
	inner := s.inner
	s.mu.Unlock()
	if inner == nil {
		return
	}
	s.innerOnce.Do(inner.Dispose)
}

// terminate flips the terminal latch. It returns false when the subscription
// already terminated or was disposed, in which case the event must be dropped.
func (s *sink) terminate() bool {
	if s.disposed.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return false
	}
	s.terminated = true
	return true
}

func (s *sink) active() bool {
	if s.disposed.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.terminated
}

func (s *sink) Dispose() {
	if s.disposed.Swap(true) {
		return
	}
	s.releaseInner()
}

func (s *sink) IsDisposed() bool {
	return s.disposed.Load()
}
