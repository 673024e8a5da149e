// Package server wires configuration, storage, the user service and the
// HTTP and gRPC listeners into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/winklink/internal/common"
	"github.com/dmitrijs2005/winklink/internal/logging"
	"github.com/dmitrijs2005/winklink/internal/server/config"
	"github.com/dmitrijs2005/winklink/internal/server/httpapi"
	"github.com/dmitrijs2005/winklink/internal/server/notify"
	"github.com/dmitrijs2005/winklink/internal/server/observability"
	"github.com/dmitrijs2005/winklink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/winklink/internal/server/services"

	gs "github.com/dmitrijs2005/winklink/internal/server/grpc"
)

const serviceName = "winklink"

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	notifier    notify.Notifier
	metrics     *observability.Metrics
	userService *services.UserService
}

// NewLogger builds the application logger from cfg, writing to w.
func NewLogger(cfg *config.Config, w io.Writer) logging.Logger {
	return logging.New(serviceName, cfg.LogFormat, cfg.LogLevel, w)
}

// Migrate opens the configured database and applies pending migrations.
func Migrate(ctx context.Context, c *config.Config, logger logging.Logger) error {
	db, rm, err := openStore(ctx, c, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	logger.Info(ctx, "migrations applied", "driver", c.DatabaseDriver)
	return nil
}

func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (*sql.DB, repomanager.RepositoryManager, error) {
	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, nil, err
	}

	db, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN, c.DBConnectRetries, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	return db, rm, nil
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	db, rm, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	var notifier notify.Notifier = notify.Nop{}
	if c.MQTTBroker != "" {
		// brokers drop the older session when two replicas share a client id
		suffix, err := common.MakeRandHexString(4)
		if err != nil {
			db.Close()
			return nil, err
		}
		n, err := notify.NewMQTTNotifier(notify.MQTTConfig{
			Broker:      c.MQTTBroker,
			ClientID:    c.MQTTClientID + "-" + suffix,
			TopicPrefix: c.MQTTTopicPrefix,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("mqtt init error: %w", err)
		}
		notifier = n
	}

	metrics := observability.NewMetrics()

	us, err := services.NewUserService(db, rm, c,
		services.WithLogger(logger),
		services.WithNotifier(notifier),
		services.WithMetrics(metrics),
	)
	if err != nil {
		notifier.Close()
		db.Close()
		return nil, err
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		notifier:    notifier,
		metrics:     metrics,
		userService: us,
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.HTTPAddr, app.logger, app.userService, app.metrics,
		app.config.CORSAllowedOrigins, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a termination signal arrives, or a
// listener fails, then releases the database and the notifier.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.notifier.Close(); err != nil {
		app.logger.Warn(ctx, "notifier close failed", "error", err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err.Error())
	}

	app.logger.Info(ctx, "App stopped")
}
