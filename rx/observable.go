package rx

import (
	"context"
)

// ObservableEmitter pushes elements into an Observable subscription.
type ObservableEmitter[T any] interface {
	Next(value T)
	Error(err error)
	Complete()

	// IsDisposed lets long-running producers stop early.
	IsDisposed() bool
}

// Observable is a cold producer of zero or more elements. Whether it ever
// terminates is up to the producer; state-change streams never do.
type Observable[T any] struct {
	produce func(ObservableEmitter[T]) Disposable
}

// NewObservable creates an Observable from a producer. The Disposable the
// producer returns is released exactly once, when the subscriber disposes or
// after a terminal event.
func NewObservable[T any](produce func(ObservableEmitter[T]) Disposable) Observable[T] {
	return Observable[T]{produce: produce}
}

type observableSink[T any] struct {
	sink
	onNext     func(T)
	onError    func(error)
	onComplete func()
}

// Next delivers value unless the subscription has terminated or been
// disposed. A delivery that passed the check before Dispose still runs.
func (s *observableSink[T]) Next(value T) {
	if !s.active() {
		return
	}
	if s.onNext != nil {
		s.onNext(value)
	}
}

func (s *observableSink[T]) Error(err error) {
	if !s.terminate() {
		return
	}
	if s.onError != nil {
		s.onError(err)
	}
	s.releaseInner()
}

func (s *observableSink[T]) Complete() {
	if !s.terminate() {
		return
	}
	if s.onComplete != nil {
		s.onComplete()
	}
	s.releaseInner()
}

// Subscribe runs the producer and routes its events. Any handler may be nil.
func (o Observable[T]) Subscribe(onNext func(T), onError func(error), onComplete func()) Disposable {
	out := &observableSink[T]{onNext: onNext, onError: onError, onComplete: onComplete}
	if o.produce == nil {
		return out
	}
	out.setInner(o.produce(out))
	return out
}

// Take collects the first n elements, then disposes the subscription. It
// returns early with what it has when the Observable terminates or ctx ends.
func (o Observable[T]) Take(ctx context.Context, n int) ([]T, error) {
	items := make(chan T, n)
	end := make(chan error, 1)
	d := o.Subscribe(
		func(v T) {
			select {
			case items <- v:
			default:
			}
		},
		func(err error) { end <- err },
		func() { end <- nil },
	)
	defer d.Dispose()

	out := make([]T, 0, n)
	for len(out) < n {
		select {
		case v := <-items:
			out = append(out, v)
		case err := <-end:
			for len(items) > 0 && len(out) < n {
				out = append(out, <-items)
			}
			return out, err
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, nil
}
