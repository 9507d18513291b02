// Package sdk defines the callback-based identity SDK that rxauth adapts.
//
// The contract is intentionally shaped like a mobile identity SDK: every
// asynchronous operation takes a completion callback as its last argument and
// returns immediately. Callbacks of the form Callback[T] receive exactly one
// of a value or an error. Operations that produce no value take an
// ErrorCallback, which receives nil on success.
//
// State and ID token listeners are registered with Add*Listener and removed
// with the handle that registration returned.
//
// The package also carries the value types the SDK hands back (AuthDataResult,
// TokenResult, UserInfo) and the Credential constructors for each provider.
// A working in-process implementation lives in the local package.
package sdk
