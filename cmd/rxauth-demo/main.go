// Command rxauth-demo signs in against the local identity SDK through the
// reactive adapter, then serves the email action pages and a protected API
// that it calls back with its own ID token.
//
//	rxauth-demo -email ada@example.com -password s3cret!
//	rxauth-demo -store sqlite -redis localhost:6379 -serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/panyam/rxauth"
	"github.com/panyam/rxauth/actions"
	"github.com/panyam/rxauth/local"
	"github.com/panyam/rxauth/providers"
	"github.com/panyam/rxauth/sdk"
	"github.com/panyam/rxauth/session"
	"github.com/panyam/rxauth/stores"
	"github.com/panyam/rxauth/stores/fs"
	gormstore "github.com/panyam/rxauth/stores/gorm"
	redisstore "github.com/panyam/rxauth/stores/redis"
	"github.com/panyam/rxauth/transport"
)

var (
	storeKind = flag.String("store", "fs", "account store: fs or sqlite")
	dataDir   = flag.String("data", "./rxauth-data", "directory for account and session data")
	redisAddr = flag.String("redis", "", "when set, keep action codes and refresh tokens in this redis")
	addr      = flag.String("addr", "127.0.0.1:8080", "listen address")
	email     = flag.String("email", "", "sign in (or sign up) with this email; anonymous when empty")
	password  = flag.String("password", "", "password for -email")
	serve     = flag.Bool("serve", false, "keep serving after the demo request")
	verbose   = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, logger); err != nil {
		logger.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

func openStores() (stores.Stores, error) {
	var s stores.Stores
	switch *storeKind {
	case "fs":
		s = fs.New(filepath.Join(*dataDir, "store"))
	case "sqlite":
		if err := os.MkdirAll(*dataDir, 0755); err != nil {
			return s, err
		}
		db, err := gorm.Open(sqlite.Open(filepath.Join(*dataDir, "rxauth.db")), &gorm.Config{})
		if err != nil {
			return s, fmt.Errorf("failed to open database: %w", err)
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return s, fmt.Errorf("failed to migrate: %w", err)
		}
		s = gormstore.New(db)
	default:
		return s, fmt.Errorf("unknown store %q", *storeKind)
	}
	if *redisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: *redisAddr})
		s.Tokens = redisstore.NewTokenStore(rdb, "rxauth")
		s.RefreshTokens = redisstore.NewRefreshTokenStore(rdb, "rxauth")
	}
	return s, nil
}

func run(ctx context.Context, logger *slog.Logger) error {
	accounts, err := openStores()
	if err != nil {
		return err
	}
	sessions, err := session.NewFSStore(filepath.Join(*dataDir, "session.json"), "rxauth-demo")
	if err != nil {
		return err
	}

	auth, err := local.New(local.Config{
		AppName:   "rxauth-demo",
		ActionURL: fmt.Sprintf("http://%s/auth/action", *addr),
		Stores:    accounts,
		Sessions:  sessions,
		Providers: providers.NewRegistry().
			Register(sdk.ProviderGitHub, providers.NewGitHub("", "")).
			Register(sdk.ProviderGoogle, providers.NewGoogle("", "")).
			Register(sdk.ProviderFacebook, providers.NewFacebook("", "")),
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer auth.Close()

	rx := rxauth.New(auth, rxauth.WithLogger(logger))
	changes := rx.StateChanges().Subscribe(func(c rxauth.StateChange) {
		if c.User == nil {
			logger.Info("signed out")
			return
		}
		logger.Info("signed in", "uid", c.User.UID(), "email", c.User.Email(), "anonymous", c.User.IsAnonymous())
	}, func(err error) {
		logger.Warn("state changes ended", "err", err)
	}, nil)
	defer changes.Dispose()

	if err := signIn(ctx, rx); err != nil {
		return err
	}

	router := mux.NewRouter()
	h := &actions.Handlers{Auth: rx, Logger: logger}
	h.Register(router.PathPrefix("/auth").Subrouter())
	mw := &transport.Middleware{Verifier: auth.Verifier(), Logger: logger}
	router.Handle("/api/whoami", mw.EnsureUser(http.HandlerFunc(whoami)))

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		return err
	}
	server := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
		}
	}()
	defer server.Shutdown(context.Background())

	resp, err := transport.NewClient(rx).Get(fmt.Sprintf("http://%s/api/whoami", lis.Addr()))
	if err != nil {
		return err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	logger.Info("whoami", "status", resp.StatusCode, "body", string(body))

	if *serve {
		logger.Info("serving", "addr", lis.Addr().String())
		<-ctx.Done()
	}
	return nil
}

// signIn keeps a restored session, otherwise signs in with -email, creating
// the account on first use.
func signIn(ctx context.Context, rx *rxauth.Auth) error {
	if rx.CurrentUser() != nil {
		return nil
	}
	if *email == "" {
		_, err := rx.SignInAnonymously().Await(ctx)
		return err
	}
	_, err := rx.SignInWithEmail(*email, *password).Await(ctx)
	if errors.Is(err, sdk.ErrUserNotFound) {
		_, err = rx.CreateUser(*email, *password).Await(ctx)
	}
	return err
}

func whoami(w http.ResponseWriter, r *http.Request) {
	token := transport.TokenFromContext(r.Context())
	fmt.Fprintf(w, "%s via %s\n", transport.UserIDFromContext(r.Context()), token.SignInProvider)
}
