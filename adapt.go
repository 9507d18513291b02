package rxauth

import (
	"github.com/panyam/rxauth/rx"
	"github.com/panyam/rxauth/sdk"
)

func emitOutcome[T any](e rx.SingleEmitter[T], o Outcome[T]) {
	if v, err := o.Get(); err != nil {
		e.Error(err)
	} else {
		e.Success(v)
	}
}

// singleHandler builds the callback handed to the SDK. It captures only the
// emitter.
func singleHandler[T any](e rx.SingleEmitter[T]) sdk.Callback[T] {
	return func(value T, err error) {
		emitOutcome(e, Resolve(value, err))
	}
}

func completableHandler(e rx.CompletableEmitter) sdk.ErrorCallback {
	return func(err error) {
		if o := ResolveError(err); o.IsSuccess() {
			e.Complete()
		} else {
			e.Error(o.Err())
		}
	}
}

// singleCall issues call against the receiver resolved at subscription time.
// The SDK has no way to cancel an in-flight call, so disposal only detaches
// the subscriber.
func singleCall[R, T any](ref Ref[R], call func(R, sdk.Callback[T])) rx.Single[T] {
	return rx.NewSingle(func(e rx.SingleEmitter[T]) rx.Disposable {
		recv, ok := ref.Get()
		if !ok {
			e.Error(ErrCurrentUserNotFound)
			return rx.Disposed()
		}
		call(recv, singleHandler(e))
		return rx.Disposed()
	})
}

func completableCall[R any](ref Ref[R], call func(R, sdk.ErrorCallback)) rx.Completable {
	return rx.NewCompletable(func(e rx.CompletableEmitter) rx.Disposable {
		recv, ok := ref.Get()
		if !ok {
			e.Error(ErrCurrentUserNotFound)
			return rx.Disposed()
		}
		call(recv, completableHandler(e))
		return rx.Disposed()
	})
}

// syncCompletable runs a synchronous call on subscription and reports it on
// the same channel as the asynchronous ones.
func syncCompletable[R any](ref Ref[R], call func(R) error) rx.Completable {
	return completableCall(ref, func(recv R, cb sdk.ErrorCallback) {
		o := ResolveVoidCall(func() error { return call(recv) })
		cb(o.Err())
	})
}

// credentialCall builds a credential then feeds it to next. Building the
// credential is part of the subscription so a failure surfaces as the
// terminal error.
func credentialCall[T any](build func() (sdk.Credential, error), next func(sdk.Credential) rx.Single[T]) rx.Single[T] {
	return rx.NewSingle(func(e rx.SingleEmitter[T]) rx.Disposable {
		o := ResolveCall(build)
		cred, err := o.Get()
		if err != nil {
			e.Error(err)
			return rx.Disposed()
		}
		return next(cred).Subscribe(e.Success, e.Error)
	})
}

type addListenerFunc func(sdk.Auth, sdk.StateListener) sdk.ListenerHandle
type removeListenerFunc func(sdk.Auth, sdk.ListenerHandle)

// listen bridges a register/remove listener pair into an Observable. The
// returned Disposable resolves the auth object again through ref, so a live
// subscription does not keep it alive.
func (a *Auth) listen(kind string, add addListenerFunc, remove removeListenerFunc) rx.Observable[StateChange] {
	ref, logger := a.ref, a.logger
	return rx.NewObservable(func(e rx.ObservableEmitter[StateChange]) rx.Disposable {
		auth, ok := ref.Get()
		if !ok {
			logger.Debug("auth released, listener not registered", "kind", kind)
			return rx.Disposed()
		}
		handle := add(auth, func(auth sdk.Auth, user sdk.User) {
			e.Next(StateChange{Auth: auth, User: user})
		})
		logger.Debug("listener registered", "kind", kind, "handle", handle)
		return rx.NewDisposable(func() {
			current, ok := ref.Get()
			if !ok {
				return
			}
			remove(current, handle)
			logger.Debug("listener removed", "kind", kind, "handle", handle)
		})
	})
}
