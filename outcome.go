package rxauth

import "reflect"

// Outcome is the resolved result of one SDK callback: either a value or an
// error, never both.
type Outcome[T any] struct {
	value T
	err   error
}

// VoidOutcome is the Outcome of a call that produces no value.
type VoidOutcome = Outcome[struct{}]

// Success returns a successful Outcome.
func Success[T any](value T) Outcome[T] {
	return Outcome[T]{value: value}
}

// Failure returns a failed Outcome. A nil err is itself an illegal
// combination and is reported as such.
func Failure[T any](err error) Outcome[T] {
	if err == nil {
		err = &IllegalCombinationError{}
	}
	return Outcome[T]{err: err}
}

// Get returns the value, or the zero value and the failure error.
func (o Outcome[T]) Get() (T, error) {
	return o.value, o.err
}

func (o Outcome[T]) IsSuccess() bool {
	return o.err == nil
}

// Err returns the failure error, or nil on success.
func (o Outcome[T]) Err() error {
	return o.err
}

// Resolve turns a (value, error) callback pair into an Outcome. Exactly one
// side must be present: a value with no error succeeds, an error with no
// value fails with that error, and anything else fails with an
// *IllegalCombinationError carrying the pair.
//
// A value is absent when it is nil (pointers, interfaces, maps, slices, funcs
// and channels) or an empty string. Other zero values such as 0 or false are
// real values.
func Resolve[T any](value T, err error) Outcome[T] {
	hasValue := !isAbsent(value)
	switch {
	case hasValue && err == nil:
		return Success(value)
	case !hasValue && err != nil:
		return Failure[T](err)
	default:
		return Failure[T](&IllegalCombinationError{Value: valueOrNil(value, hasValue), Err: err})
	}
}

// ResolveError resolves an error-only callback. nil is success.
func ResolveError(err error) VoidOutcome {
	if err != nil {
		return Failure[struct{}](err)
	}
	return Success(struct{}{})
}

// ResolveCall runs a synchronous call. A nil error is success whatever the
// value.
func ResolveCall[T any](fn func() (T, error)) Outcome[T] {
	v, err := fn()
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

// ResolveVoidCall runs a synchronous call that only reports an error.
func ResolveVoidCall(fn func() error) VoidOutcome {
	return ResolveError(fn())
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	case reflect.String:
		return rv.Len() == 0
	}
	return false
}

func valueOrNil(v any, present bool) any {
	if !present {
		return nil
	}
	return v
}
