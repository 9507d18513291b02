package rxauth

import "weak"

// Ref resolves an SDK receiver when a subscription starts. ok is false when
// the receiver is no longer available.
type Ref[T any] interface {
	Get() (value T, ok bool)
}

type strongRef[T any] struct {
	value T
}

// Strong returns a Ref that keeps v alive. A nil v is never available.
func Strong[T any](v T) Ref[T] {
	return strongRef[T]{value: v}
}

func (r strongRef[T]) Get() (T, bool) {
	return r.value, !isAbsent(r.value)
}

type weakRef[I any, P any] struct {
	ptr weak.Pointer[P]
}

// WeakRef returns a Ref that does not keep p alive. Once p has been garbage
// collected the Ref reports it as unavailable. *P must implement I.
func WeakRef[I any, P any](p *P) Ref[I] {
	return weakRef[I, P]{ptr: weak.Make(p)}
}

func (r weakRef[I, P]) Get() (I, bool) {
	var zero I
	p := r.ptr.Value()
	if p == nil {
		return zero, false
	}
	v, ok := any(p).(I)
	if !ok {
		return zero, false
	}
	return v, true
}

type funcRef[T any] func() (T, bool)

func (f funcRef[T]) Get() (T, bool) { return f() }
