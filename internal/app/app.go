package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rajasatyajit/EcoScan/config"
	"github.com/rajasatyajit/EcoScan/internal/api"
	"github.com/rajasatyajit/EcoScan/internal/catalog"
	"github.com/rajasatyajit/EcoScan/internal/ledger"
	"github.com/rajasatyajit/EcoScan/internal/logger"
	middlewares "github.com/rajasatyajit/EcoScan/internal/middleware"
	"github.com/rajasatyajit/EcoScan/internal/pipeline"
	"github.com/rajasatyajit/EcoScan/internal/service"
	"github.com/rajasatyajit/EcoScan/internal/store"
)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// App holds every wired component for one process
type App struct {
	Config   *config.Config
	Store    store.BlobStore
	Ledger   *ledger.Ledger
	Catalog  *catalog.Catalog
	Pipeline *pipeline.Pipeline
	Service  *service.Service
}

// Option adjusts wiring before components are built
type Option func(*options)

type options struct {
	remote      pipeline.Source
	remoteSet   bool
	ledgerOpts  []ledger.Option
	serviceOpts []service.Option
}

// WithRemote replaces the remote product source; nil disables it
func WithRemote(src pipeline.Source) Option {
	return func(o *options) { o.remote, o.remoteSet = src, true }
}

// WithLedgerOptions passes options through to ledger.Open
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(o *options) { o.ledgerOpts = append(o.ledgerOpts, opts...) }
}

// WithServiceOptions passes options through to service.New
func WithServiceOptions(opts ...service.Option) Option {
	return func(o *options) { o.serviceOpts = append(o.serviceOpts, opts...) }
}

// New opens the store, loads the ledger and wires the resolution pipeline.
// An unreadable ledger is logged and replaced by an empty one.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	st, err := store.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	l, err := ledger.Open(ctx, st, o.ledgerOpts...)
	if err != nil {
		logger.Warn("Ledger could not be loaded; continuing with empty history",
			"backend", st.Name(),
			"error", err,
		)
	}

	remote := o.remote
	if !o.remoteSet && cfg.Resolver.Enabled {
		remote = pipeline.NewOpenFoodFactsSource(cfg.Resolver)
	}
	p := pipeline.New(remote, cat, cfg.Resolver)

	logger.Info("EcoScan initialized",
		"store", st.Name(),
		"catalog_products", cat.Len(),
		"history_events", l.Len(),
		"points", l.Points(),
	)

	return &App{
		Config:   cfg,
		Store:    st,
		Ledger:   l,
		Catalog:  cat,
		Pipeline: p,
		Service:  service.New(p, l, cat, o.serviceOpts...),
	}, nil
}

// Router builds the HTTP handler with the standard middleware chain
func (a *App) Router(info BuildInfo) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	if a.Config.Server.ReadTimeout > 0 {
		r.Use(middleware.Timeout(a.Config.Server.ReadTimeout))
	}
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(a.Config.Server.AllowedOrigins))
	r.Use(middlewares.RateLimit(a.Config.Server.RateLimit))

	apiHandler := api.NewHandler(a.Service, a.Store, info.Version, info.BuildTime, info.GitCommit)
	apiHandler.RegisterRoutes(r)

	return r
}

// Close releases the store
func (a *App) Close() error {
	return a.Store.Close()
}
