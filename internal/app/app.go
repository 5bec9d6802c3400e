// Package app wires configuration into the running components shared by
// every binary: logger, storage backend, ledger and AI gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/smart-finance/internal/config"
	"github.com/dvloznov/smart-finance/internal/gateway"
	"github.com/dvloznov/smart-finance/internal/ledger"
	"github.com/dvloznov/smart-finance/internal/logger"
	"github.com/dvloznov/smart-finance/internal/store"
	"github.com/dvloznov/smart-finance/internal/store/filekv"
	"github.com/dvloznov/smart-finance/internal/store/gcskv"
	"github.com/dvloznov/smart-finance/internal/store/sqlitekv"
	"github.com/rs/zerolog"
)

// ErrNoAPIKey is returned when an AI feature is used without a key.
var ErrNoAPIKey = errors.New("no Gemini API key configured (set SMARTFINANCE_LLM_API_KEY or GEMINI_API_KEY)")

// App holds the assembled components.
type App struct {
	Config  config.Config
	Log     zerolog.Logger
	KV      store.KV
	Store   *store.Store
	Ledger  *ledger.Ledger
	Gateway *gateway.Gateway // nil without an API key

	closers []io.Closer
}

// Option adjusts bootstrap.
type Option func(*options)

type options struct {
	logOutput io.Writer
	generator gateway.Generator
}

// WithLogOutput sends logs to w instead of the configured destination.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithGenerator replaces the Gemini client, mainly for tests.
func WithGenerator(gen gateway.Generator) Option {
	return func(o *options) { o.generator = gen }
}

// New builds an App from cfg. The returned context carries the logger.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, context.Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}

	out := o.logOutput
	if out == nil && cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, ctx, fmt.Errorf("app.New: open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		out = f
	}
	a.Log = logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: out})
	ctx = logger.WithContext(ctx, a.Log)

	kv, err := OpenKV(ctx, cfg.Store)
	if err != nil {
		a.Close()
		return nil, ctx, fmt.Errorf("app.New: %w", err)
	}
	a.KV = kv
	a.Store = store.New(kv)

	snap, err := a.Store.Load(ctx)
	if err != nil {
		a.Close()
		return nil, ctx, fmt.Errorf("app.New: %w", err)
	}
	a.Ledger = ledger.New(snap, a.Store)

	gwOpts := []gateway.Option{gateway.WithModel(cfg.LLM.Model), gateway.WithHourlyWage(cfg.AI.HourlyWage)}
	switch {
	case o.generator != nil:
		a.Gateway = gateway.New(o.generator, gwOpts...)
	case cfg.HasLLM():
		gw, err := gateway.NewGemini(ctx, cfg.LLM.APIKey, gwOpts...)
		if err != nil {
			a.Close()
			return nil, ctx, fmt.Errorf("app.New: %w", err)
		}
		a.Gateway = gw
	default:
		a.Log.Warn().Msg("No Gemini API key configured; AI features are disabled")
	}

	a.Log.Info().
		Str("backend", cfg.Store.Backend).
		Int("transactions", len(snap.Transactions)).
		Int("accounts", len(snap.Accounts)).
		Msg("Ledger loaded")

	return a, ctx, nil
}

// RequireGateway returns the gateway or ErrNoAPIKey.
func (a *App) RequireGateway() (*gateway.Gateway, error) {
	if a.Gateway == nil {
		return nil, ErrNoAPIKey
	}
	return a.Gateway, nil
}

// Close releases the storage backend and log file.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	a.Store = nil
	return errors.Join(errs...)
}

// OpenKV opens the backend named by cfg.Backend.
func OpenKV(ctx context.Context, cfg config.StoreConfig) (store.KV, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemoryKV(), nil
	case config.BackendFile, "":
		return filekv.Open(cfg.Dir)
	case config.BackendSQLite:
		return sqlitekv.Open(cfg.SQLitePath)
	case config.BackendGCS:
		return gcskv.Open(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
