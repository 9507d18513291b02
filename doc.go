/*
Package rxauth exposes a callback-based identity SDK as reactive primitives.

Every asynchronous SDK call of the form call(args..., func(value, error)) is
surfaced as an rx.Single, calls that only report an error become an
rx.Completable, and the register/remove listener pairs become an
rx.Observable that unregisters when disposed.

# Getting Started

Wrap an sdk.Auth (for example one built by the local package) and subscribe:

	auth := rxauth.New(sdkAuth)

	res, err := auth.SignInWithEmail("ada@example.com", "s3cret").Await(ctx)
	if err != nil {
	    return err
	}
	fmt.Println("signed in as", res.User.UID())

	d := auth.StateChanges().Subscribe(func(c rxauth.StateChange) {
	    fmt.Println("user is now", c.User)
	}, nil, nil)
	defer d.Dispose()

# Callback Resolution

Callbacks are resolved into an Outcome before they reach the subscriber. A
callback that reports a value and no error succeeds, one that reports an
error and no value fails with that error unchanged, and a callback that
reports both or neither fails with an *IllegalCombinationError.

# Receivers

Auth and User hold their SDK object through a Ref and resolve it only when a
subscription starts. NewWeak and NewWeakUser hold a weak reference, so the
wrapper never keeps the SDK object alive. When the receiver is gone, or an
operation needs a signed-in user and there is none, the primitive fails with
ErrCurrentUserNotFound without calling the SDK.

Disposing a subscription detaches it from the pending callback but cannot
cancel the SDK call itself. Disposing a listener stream removes the listener
before Dispose returns.
*/
package rxauth
