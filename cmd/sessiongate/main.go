package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"sessiongate/internal/session/adapters/exchange"
	sessionhttp "sessiongate/internal/session/adapters/http"
	"sessiongate/internal/session/adapters/transport"
	"sessiongate/internal/session/app"
	"sessiongate/internal/session/config"
	"sessiongate/internal/session/metrics"
	"sessiongate/internal/session/resilience"
	"sessiongate/pkg/logger"
	"sessiongate/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "SESSION_LOGGER_MODE"
	EnvLoggerLevel = "SESSION_LOGGER_LEVEL"
	EnvConfigPath  = "SESSION_CONFIG_PATH"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrOpenPersistence      = "failed to open token persistence"
	ErrRestoreSession       = "failed to restore session, starting logged out"
	ErrStartHTTPServer      = "failed to start HTTP server"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "session service started"
	LogServiceShutdownDone = "session service shutdown complete"
	LogStoppingHTTP        = "stopping HTTP server"
	LogInitPersistence     = "initializing token persistence"
	LogInitSession         = "initializing session controller"
	LogInitHTTPServer      = "initializing HTTP server"
	LogStartingHTTP        = "starting HTTP server"
	LogLoginRequired       = "session invalidated, login required"
)

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx, os.Getenv(EnvConfigPath))
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		log.Info(ctx, LogServiceStarted,
			zap.String("environment", string(cfg.Logging.GetEnvironment())),
			zap.String("log_level", cfg.Logging.Level),
			zap.String("startup_time", time.Now().Format(time.RFC3339)))

		log.Info(ctx, LogInitPersistence, zap.String("driver", cfg.Persistence.Driver))
		persistence, closePersistence, err := openPersistence(ctx, cfg)
		if err != nil {
			log.Error(ctx, ErrOpenPersistence, zap.Error(err))
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitSession)
		m := metrics.New()
		exchanger := resilience.NewExchanger(
			exchange.New(exchange.Options{
				BaseURL: cfg.Exchange.BaseURL,
				Timeout: cfg.Exchange.Timeout,
			}),
			resilience.NewCircuitBreaker("auth_exchange", resilience.CircuitBreakerConfig{
				ErrorThreshold:   cfg.Exchange.CircuitBreaker.ErrorThreshold,
				Timeout:          cfg.Exchange.CircuitBreaker.Timeout,
				SuccessThreshold: cfg.Exchange.CircuitBreaker.SuccessThreshold,
			}),
		)

		store := app.NewTokenStore(persistence)
		notifier := app.NewNotifier()
		coordinator := app.NewRefreshCoordinator(store, exchanger, notifier, app.CoordinatorOptions{
			RefreshTimeout: cfg.Session.RefreshTimeout,
			PersistTimeout: cfg.Session.PersistTimeout,
			ExpiryLeeway:   cfg.Session.ExpiryLeeway,
			Metrics:        m,
		})
		executor := app.NewExecutor(coordinator,
			transport.New(transport.Options{BaseURL: cfg.Transport.BaseURL}),
			app.ExecutorOptions{RequestTimeout: cfg.Transport.RequestTimeout, Metrics: m})
		controller := app.NewController(store, coordinator, executor, exchanger, notifier)

		if err := controller.Start(ctx); err != nil {
			log.Warn(ctx, ErrRestoreSession, zap.Error(err))
		}

		events, unsubscribe := controller.Subscribe()
		go func() {
			for ev := range events {
				log.Warn(ctx, LogLoginRequired, zap.String("reason", ev.Reason), zap.Time("at", ev.At))
			}
		}()

		log.Info(ctx, LogInitHTTPServer)
		server := fiber.New(fiber.Config{
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		})

		routerOpts := sessionhttp.RouterOptions{MetricsPath: cfg.Metrics.Path}
		if cfg.Metrics.Enabled {
			routerOpts.Metrics = m
		}
		sessionhttp.SetupRouter(server, controller, routerOpts)

		log.Info(ctx, LogStartingHTTP, zap.String("address", cfg.HTTP.GetAddress()))
		go func() {
			if err := server.Listen(cfg.HTTP.GetAddress()); err != nil {
				log.Error(ctx, ErrStartHTTPServer, zap.Error(err))
			}
		}()

		shutdown.Wait(ctx, cfg.Shutdown.GetTimeout(),
			func(ctx context.Context) error {
				log.Info(ctx, LogStoppingHTTP)
				return server.ShutdownWithContext(ctx)
			},
			func(ctx context.Context) error {
				unsubscribe()
				if err := store.Sync(ctx); err != nil {
					log.Warn(ctx, app.LogPersistFailed, zap.Error(err))
				}
				return closePersistence(ctx)
			},
		)

		log.Info(ctx, LogServiceShutdownDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
