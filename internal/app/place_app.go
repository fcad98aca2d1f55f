package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/ssherwood/placeservice/internal/config"
	"github.com/ssherwood/placeservice/internal/place"
	"github.com/ssherwood/placeservice/internal/shared"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel/sdk/log"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

type Application interface {
	Initialize(ctx context.Context) error
	Run()
	Shutdown(ctx context.Context) error
}

type PlaceApplication struct {
	Server          *http.Server
	Router          *mux.Router
	TracerProvider  *trace.TracerProvider
	MetricsProvider *metricsdk.MeterProvider
	LoggerProvider  *log.LoggerProvider
	Store           place.Store
	Publisher       place.Publisher
	Service         *place.Service
}

func (app *PlaceApplication) Initialize(ctx context.Context) error {
	lp, err := shared.InitializeLoggingProvider(ctx)
	switch {
	case err != nil:
		shared.InitializeLogging(nil)
		slog.Warn("Logging to console only", config.ErrAttr(err))
	case lp != nil:
		app.LoggerProvider = lp
		shared.InitializeLogging(lp)
	default:
		shared.InitializeLogging(nil)
	}

	if config.OTELEnabled {
		if tp, err := shared.InitTracerProvider(ctx); err != nil {
			return err
		} else {
			app.TracerProvider = tp
		}

		if mp, err := shared.InitializeMetricProvider(ctx); err != nil {
			return err
		} else {
			app.MetricsProvider = mp
		}
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	app.Store = store

	options := []place.ServiceOption{place.WithStrictCoordinates(config.PlaceStrictCoordinates)}

	if len(config.KafkaBrokers) > 0 {
		app.Publisher = place.NewKafkaPublisher(config.KafkaBrokers, config.KafkaTopic)
		options = append(options, place.WithPublisher(app.Publisher))
	}

	if config.MinioEndpoint != "" {
		images, err := place.NewMinioImageStore(config.MinioEndpoint, config.MinioAccessKey, config.MinioSecretKey,
			config.MinioUseSSL, config.MinioBucket)
		if err != nil {
			return err
		}
		if err := images.EnsureBucket(ctx, config.MinioRegion); err != nil {
			return err
		}
		options = append(options, place.WithImageStore(images))
	}

	app.Service = place.NewService(app.Store, options...)

	app.Router = mux.NewRouter()
	app.Router.Use(otelmux.Middleware(config.ServiceName))
	_ = place.NewHandler(app.Router, app.Service)

	app.Server = &http.Server{
		Handler:      app.Router,
		Addr:         config.ServerAddress,
		WriteTimeout: config.ServerWriteTimeout,
		ReadTimeout:  config.ServerReadTimeout,
	}

	return nil
}

// openStore picks the place store named by PLACE_STORE.
func openStore(ctx context.Context) (place.Store, error) {
	switch config.PlaceStore {
	case config.StoreSQLite:
		slog.Info("Using SQLite place store", slog.String("sqlite.path", config.SQLitePath))
		return place.OpenSQLite(config.SQLitePath)

	case config.StorePostgres:
		db, err := shared.InitializeDB(ctx)
		if err != nil {
			return nil, err
		}

		// force establishing at least one valid connection
		if err = shared.PingDB(ctx, db); err != nil {
			db.Close()
			return nil, err
		}

		repository := place.NewRepository(db)
		if err := repository.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return repository, nil
	}
	return nil, fmt.Errorf("unknown PLACE_STORE %q, want %q or %q", config.PlaceStore, config.StorePostgres, config.StoreSQLite)
}

func (app *PlaceApplication) Run() {
	go func() {
		slog.Info("Starting application", config.SlogServiceName, config.SlogServiceAddress)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start application", config.SlogServiceName, config.ErrAttr(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// create a context with timeout for the shutdown process
	cancelContext, cancelFn := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancelFn()

	if err := app.Shutdown(cancelContext); err != nil {
		slog.Info("Failed to gracefully shutdown", config.SlogServiceName, config.ErrAttr(err))
	}

	slog.Info("Application stopped.", config.SlogServiceName)
}

// Shutdown - invokes the global shutdown on the app to remove/close open resources
func (app *PlaceApplication) Shutdown(ctx context.Context) error {
	slog.Info("Application shutting down...", config.SlogServiceName)

	var errs []error

	if app.Server != nil {
		if err := app.Server.Shutdown(ctx); err != nil {
			slog.Warn("Unable to shutdown HTTP server", config.SlogServiceName, config.ErrAttr(err))
			errs = append(errs, err)
		}
	}

	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			slog.Warn("Unable to close place event publisher", config.ErrAttr(err))
			errs = append(errs, err)
		}
	}

	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			slog.Warn("Unable to close place store", config.ErrAttr(err))
			errs = append(errs, err)
		}
	}

	if app.MetricsProvider != nil {
		if err := app.MetricsProvider.Shutdown(ctx); err != nil {
			slog.Warn("Unable to shutdown OTEL metrics provider", config.SlogServiceName, config.ErrAttr(err))
			errs = append(errs, err)
		}
	}

	if app.TracerProvider != nil {
		if err := app.TracerProvider.Shutdown(ctx); err != nil {
			slog.Warn("Unable to shutdown OTEL tracer provider", config.ErrAttr(err))
			errs = append(errs, err)
		}
	}

	if app.LoggerProvider != nil {
		if err := app.LoggerProvider.Shutdown(ctx); err != nil {
			slog.Warn("Unable to shutdown OTEL logger provider", config.ErrAttr(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
