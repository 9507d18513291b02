package rxauth

import (
	"errors"
	"fmt"
)

// ErrCurrentUserNotFound is returned without calling the SDK when an
// operation needs a receiver that is not there: no signed-in user, or an SDK
// object that has already been released.
var ErrCurrentUserNotFound = errors.New("rxauth: current user not found")

// ErrUserNotFound is an alias kept for callers that use the shorter name.
var ErrUserNotFound = ErrCurrentUserNotFound

// ErrIllegalCombination matches any *IllegalCombinationError with errors.Is.
var ErrIllegalCombination = errors.New("rxauth: illegal callback combination")

// IllegalCombinationError reports an SDK callback that delivered both a value
// and an error, or neither.
type IllegalCombinationError struct {
	Value any
	Err   error
}

func (e *IllegalCombinationError) Error() string {
	if e.Value == nil && e.Err == nil {
		return "rxauth: callback delivered neither a value nor an error"
	}
	return fmt.Sprintf("rxauth: callback delivered both a value (%v) and an error (%v)", e.Value, e.Err)
}

func (e *IllegalCombinationError) Is(target error) bool {
	return target == ErrIllegalCombination
}
