// Package local is an in-process identity SDK. It implements sdk.Auth and
// sdk.User on top of the account stores, so an application (or a test) can
// run the whole sign-in surface without a remote identity service:
//
//	auth, err := local.New(local.Config{
//	    AppName:  "notes",
//	    Stores:   fs.New("/var/lib/notes/auth"),
//	    Sessions: sessions,
//	})
//	if err != nil {
//	    return err
//	}
//	defer auth.Close()
//
//	rx := rxauth.New(auth)
//	result, err := rx.CreateUser("ada@example.com", "s3cret!").Await(ctx)
//
// Passwords are hashed with bcrypt and checked under a per-identity rate
// limit. ID tokens are HS256 JWTs that servers can check with
// NewTokenVerifier; they are reissued from a rotating refresh token when
// they get close to expiry. OAuth credentials are verified through the
// providers registry, phone numbers with a code sent by the configured
// SMSSender, and email actions (verification, password reset) with codes
// mailed by the configured Mailer.
//
// All callbacks run on a single goroutine in the order the SDK produced
// them. Listener notifications are queued the same way and are skipped if
// the listener was removed before its turn.
package local
