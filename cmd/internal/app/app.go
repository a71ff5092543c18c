// Package app wires the usersvc runtime: config, logging, storage, HTTP
// routes and the command line.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"usersvc/cmd/identity"
	"usersvc/cmd/internal/users"
	"usersvc/cmd/internal/users/api"
	"usersvc/cmd/security/password"
	"usersvc/cmd/security/token"

	"github.com/prometheus/client_golang/prometheus"
)

// App is the server runtime. It owns the store and the HTTP server.
type App struct {
	cfg Config
	log Logger

	store    identity.Store
	registry *prometheus.Registry
	metrics  *httpMetrics

	svc   *users.Service
	users *api.Handler
}

// New constructs a fully wired App. It opens (and optionally migrates) the
// configured store and seeds the Admin account when one is configured.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(cfg.Token)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg, log, cfg.MigrateOnStart)
	if err != nil {
		return nil, err
	}

	reg := newRegistry()
	m := newHTTPMetrics(reg)

	hasher := password.NewHasher(cfg.Password, password.WithObserver(m.observeHash))
	svc, err := users.NewService(st, hasher, issuer, users.WithLogger(log))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	h, err := api.NewHandler(log, api.Config{MaxBodyBytes: cfg.MaxBodyBytes}, svc, issuer,
		api.WithMetrics(api.NewMetrics(reg)))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		store:    st,
		registry: reg,
		metrics:  m,
		svc:      svc,
		users:    h,
	}

	if err := a.seedAdmin(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) seedAdmin(ctx context.Context) error {
	if a.cfg.AdminEmail == "" {
		return nil
	}
	created, err := a.svc.SeedAdmin(ctx, users.CreateInput{
		Username: a.cfg.AdminUsername,
		Email:    a.cfg.AdminEmail,
		Password: a.cfg.AdminPassword,
	})
	if err != nil {
		return err
	}
	if created {
		a.log.Info("admin.seeded", "email", a.cfg.AdminEmail)
	}
	return nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.routes() }

// Close releases the store.
func (a *App) Close() error { return a.store.Close() }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "store", a.cfg.Store)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		_ = a.Close()
		return err
	}

	if err := a.Close(); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
