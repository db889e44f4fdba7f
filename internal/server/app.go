// Package server wires the duplofs components together and runs the HTTP
// front end until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/duplofs/internal/common"
	"github.com/dmitrijs2005/duplofs/internal/logging"
	"github.com/dmitrijs2005/duplofs/internal/obs/metrics"
	"github.com/dmitrijs2005/duplofs/internal/obs/tracing"
	"github.com/dmitrijs2005/duplofs/internal/server/config"
	"github.com/dmitrijs2005/duplofs/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/duplofs/internal/server/services"
	"github.com/dmitrijs2005/duplofs/internal/server/storage"
	"github.com/dmitrijs2005/duplofs/internal/server/web"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	web             *web.Server
	tracingShutdown tracing.ShutdownFunc
}

// NewApp validates c and builds every component. Any failure aborts startup
// and releases what was already opened.
func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		Enabled:     c.TracingEnabled,
		Endpoint:    c.TracingEndpoint,
		Protocol:    c.TracingProtocol,
		SampleRatio: c.TracingSampleRatio,
		ServiceName: common.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init error: %w", err)
	}
	defer func() {
		if err != nil {
			_ = shutdownTracing(ctx)
		}
	}()

	db, err := repomanager.Open(ctx, c.DSN())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	m := metrics.New()

	gw, err := storage.NewGateway(ctx, storage.OptionsFromConfig(c), logger, metrics.NewStorageMetrics(m.Registry()))
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	us := services.NewUserService(db, rm, c)

	ws, err := web.NewServer(web.Options{
		Addr:           c.HTTPAddr,
		SecretKey:      c.SecretKey,
		SessionTTL:     c.SessionTTL,
		CookieSecure:   c.CookieSecure,
		MaxUploadBytes: c.MaxUploadBytes,
	}, web.Deps{
		Users:   us,
		Files:   gw,
		DB:      db,
		Metrics: m,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("web init error: %w", err)
	}

	return &App{
		config:          c,
		logger:          logger,
		db:              db,
		web:             ws,
		tracingShutdown: shutdownTracing,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	if err := app.web.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the database, flushes traces and syncs the logger. A server that
// fails to start or stops with an error makes Run return that error.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close()

	return <-errCh
}

func (app *App) close() {
	ctx := context.Background()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "close db", "error", err)
	}
	if app.tracingShutdown != nil {
		if err := app.tracingShutdown(ctx); err != nil {
			app.logger.Error(ctx, "tracing shutdown", "error", err)
		}
	}

	app.logger.Info(ctx, "App stopped")
	_ = logging.Sync(app.logger)
}
