// Package rx provides the small set of reactive primitives that rxauth emits
// into: a Single that produces one value or one error, a Completable that
// produces completion or one error, and an Observable that produces an
// unbounded sequence of elements until its subscriber disposes it.
//
// The shapes follow the reactive streams vocabulary (publisher, subscriber,
// subscription) with cancellation expressed as a Disposable:
//
//	d := single.Subscribe(
//	    func(v string) { fmt.Println("got", v) },
//	    func(err error) { fmt.Println("failed", err) },
//	)
//	defer d.Dispose()
//
// Every primitive is cold: the producer function runs once per Subscribe call,
// synchronously on the subscribing goroutine. Emitters are safe for use from
// any goroutine. A subscription delivers at most one terminal event, and no
// delivery starts once Dispose has returned. A handler already running on
// another goroutine when Dispose is called is not waited for and may still
// finish. Dispose takes no delivery lock, so a handler may dispose its own
// subscription.
//
// For callers that prefer blocking code, Single.Await and Completable.Await
// wait for the terminal event or for the context to be done, disposing the
// subscription in the latter case.
package rx
