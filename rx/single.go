package rx

import (
	"context"
)

// SingleEmitter receives the one terminal event of a Single. Only the first
// call to either method has an effect.
type SingleEmitter[T any] interface {
	Success(value T)
	Error(err error)
}

// Single is a cold producer of exactly one value or one error.
type Single[T any] struct {
	produce func(SingleEmitter[T]) Disposable
}

// NewSingle creates a Single from a producer. The producer runs once per
// subscription and returns the Disposable that releases whatever it started.
func NewSingle[T any](produce func(SingleEmitter[T]) Disposable) Single[T] {
	return Single[T]{produce: produce}
}

// JustSingle returns a Single that succeeds with v.
func JustSingle[T any](v T) Single[T] {
	return NewSingle(func(e SingleEmitter[T]) Disposable {
		e.Success(v)
		return Disposed()
	})
}

// ErrorSingle returns a Single that fails with err without doing any work.
func ErrorSingle[T any](err error) Single[T] {
	return NewSingle(func(e SingleEmitter[T]) Disposable {
		e.Error(err)
		return Disposed()
	})
}

type singleSink[T any] struct {
	sink
	onSuccess func(T)
	onError   func(error)
}

func (s *singleSink[T]) Success(value T) {
	if !s.terminate() {
		return
	}
	if s.onSuccess != nil {
		s.onSuccess(value)
	}
	s.releaseInner()
}

func (s *singleSink[T]) Error(err error) {
	if !s.terminate() {
		return
	}
	if s.onError != nil {
		s.onError(err)
	}
	s.releaseInner()
}

// Subscribe runs the producer and routes its terminal event to onSuccess or
// onError. Either handler may be nil.
func (s Single[T]) Subscribe(onSuccess func(T), onError func(error)) Disposable {
	out := &singleSink[T]{onSuccess: onSuccess, onError: onError}
	if s.produce == nil {
		return out
	}
	out.setInner(s.produce(out))
	return out
}

// Await subscribes and blocks until the Single terminates or ctx is done.
// When ctx ends first the subscription is disposed and ctx.Err() returned.
func (s Single[T]) Await(ctx context.Context) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	d := s.Subscribe(
		func(v T) { done <- result{value: v} },
		func(err error) { done <- result{err: err} },
	)
	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		d.Dispose()
		var zero T
		return zero, ctx.Err()
	}
}

// MapSingle transforms the success value of a Single.
func MapSingle[T, R any](s Single[T], fn func(T) R) Single[R] {
	return NewSingle(func(e SingleEmitter[R]) Disposable {
		return s.Subscribe(
			func(v T) { e.Success(fn(v)) },
			e.Error,
		)
	})
}
