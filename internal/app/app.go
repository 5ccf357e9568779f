package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"chatd/internal/sweeper"
	"chatd/pkg/config"
	"chatd/pkg/presence"
	"chatd/pkg/realtime"
	"chatd/pkg/service"
	"chatd/pkg/state"
	"chatd/pkg/store"
	"chatd/pkg/users"
	"chatd/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	registry *presence.Registry
	svc      *service.Service
	ws       *realtime.WSHandler

	srv *http.Server
}

// New initializes resources that do not require a running context (state
// dirs, DB, validation limits, runtime keys, service wiring). It does not
// start the sweeper or the HTTP server; call Run to start those and block
// until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	// input limits
	validation.SetLimits(validation.Limits{
		MaxTextBytes:  eff.Config.Limits.MaxTextBytes,
		MaxEmojiBytes: eff.Config.Limits.MaxEmojiBytes,
	})

	// runtime folder layout, then the store inside it
	if err := state.EnsureStateDirs(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to prepare state dirs under %s: %w", eff.DBPath, err)
	}
	if err := store.Open(filepath.Join(eff.DBPath, "store")); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	registry := presence.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry)
	svc := service.New(users.StoreDirectory{}, dispatcher)
	ws := realtime.NewWSHandler(registry,
		eff.Config.Realtime.SendBuffer,
		time.Duration(eff.Config.Realtime.PingIntervalSec)*time.Second)

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		registry:  registry,
		svc:       svc,
		ws:        ws,
	}, nil
}

// Run starts the sweeper (if enabled) and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs. On cancellation the HTTP
// server drains before the store closes.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	sweepCancel, err := sweeper.Start(ctx, a.eff.Config)
	if err != nil {
		return err
	}
	defer sweepCancel()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if a.srv != nil {
			_ = a.srv.Shutdown(shutCtx)
		}
		return store.Close()
	case err := <-errCh:
		_ = store.Close()
		return err
	}
}
