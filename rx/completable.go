package rx

import "context"

// CompletableEmitter receives the terminal event of a Completable.
type CompletableEmitter interface {
	Complete()
	Error(err error)
}

// Completable is a cold producer of completion or one error, with no value.
type Completable struct {
	produce func(CompletableEmitter) Disposable
}

// NewCompletable creates a Completable from a producer.
func NewCompletable(produce func(CompletableEmitter) Disposable) Completable {
	return Completable{produce: produce}
}

// ErrorCompletable returns a Completable that fails with err without doing
// any work.
func ErrorCompletable(err error) Completable {
	return NewCompletable(func(e CompletableEmitter) Disposable {
		e.Error(err)
		return Disposed()
	})
}

// EmptyCompletable completes immediately.
func EmptyCompletable() Completable {
	return NewCompletable(func(e CompletableEmitter) Disposable {
		e.Complete()
		return Disposed()
	})
}

type completableSink struct {
	sink
	onComplete func()
	onError    func(error)
}

func (s *completableSink) Complete() {
	if !s.terminate() {
		return
	}
	if s.onComplete != nil {
		s.onComplete()
	}
	s.releaseInner()
}

func (s *completableSink) Error(err error) {
	if !s.terminate() {
		return
	}
	if s.onError != nil {
		s.onError(err)
	}
	s.releaseInner()
}

// Subscribe runs the producer and routes its terminal event.
func (c Completable) Subscribe(onComplete func(), onError func(error)) Disposable {
	out := &completableSink{onComplete: onComplete, onError: onError}
	if c.produce == nil {
		return out
	}
	out.setInner(c.produce(out))
	return out
}

// Await subscribes and blocks until the Completable terminates or ctx is done.
func (c Completable) Await(ctx context.Context) error {
	done := make(chan error, 1)
	d := c.Subscribe(
		func() { done <- nil },
		func(err error) { done <- err },
	)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		d.Dispose()
		return ctx.Err()
	}
}
