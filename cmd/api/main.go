//	@title			VIYEY Worker API
//	@version		1.0
//	@description	Upload and delete media files across object storage, a metadata document store, a link shortener and a shared aggregate.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/ndunkgo99/Viyey-worker/internal/config"
	"github.com/ndunkgo99/Viyey-worker/internal/db"
	"github.com/ndunkgo99/Viyey-worker/internal/docstore"
	"github.com/ndunkgo99/Viyey-worker/internal/file"
	"github.com/ndunkgo99/Viyey-worker/internal/logging"
	"github.com/ndunkgo99/Viyey-worker/internal/server"
	"github.com/ndunkgo99/Viyey-worker/internal/shortener"
	"github.com/ndunkgo99/Viyey-worker/internal/stats"
	"github.com/ndunkgo99/Viyey-worker/internal/storage"

	_ "github.com/ndunkgo99/Viyey-worker/docs/swagger"
)

// exitCode is a process termination code.
type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1
)

// Shutdown timeout for the http server.
const shutdownTimeout = 30 * time.Second

var errSignal = errors.New("signal received")

func main() {
	os.Exit(int(gracefulMain()))
}

// gracefulMain owns every resource so deferred cleanups run before os.Exit.
func gracefulMain() exitCode {
	cfg, dotenv, err := config.Load()
	if err != nil {
		logger := logging.New("info")
		level.Error(logger).Log("msg", "config load failed", "err", err)
		return exitFailure
	}

	logger := log.With(logging.New(cfg.LogLevel), "worker", cfg.WorkerName)
	if !dotenv {
		level.Debug(logger).Log("msg", "no .env file found, reading environment variables only")
	}
	defer monitorPanic(logger)

	ctx := context.Background()

	docs, closeDocs, err := newDocstore(ctx, cfg, logger)
	if err != nil {
		level.Error(logger).Log("msg", "metadata store init failed", "backend", cfg.MetadataBackend, "err", err)
		return exitFailure
	}
	defer closeDocs()

	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		level.Error(logger).Log("msg", "object storage init failed", "backend", cfg.StorageBackend, "err", err)
		return exitFailure
	}

	var short shortener.Shortener = shortener.Disabled{}
	if cfg.ShortenerEnabled() {
		short = shortener.NewClient(cfg.ShortenerURL, cfg.ShortenerToken, cfg.RemoteTimeout)
	} else {
		level.Info(logger).Log("msg", "link shortener not configured, uploads will carry no short url")
	}

	// Wire dependencies: stores → counter/service → handler
	counter := stats.NewCounter(docs, cfg.SummaryDocument)
	fileSvc := file.NewService(
		store, docs, short, counter, cfg.FilesCollection,
		file.Timeouts{Remote: cfg.RemoteTimeout, Transfer: cfg.UploadTimeout},
		logging.Component(logger, "files"),
	)
	fileHandler := file.NewHandler(fileSvc, cfg.MaxUploadSize, logging.Component(logger, "files_http"))
	summaryHandler := stats.NewHandler(counter, cfg.SummaryProfile == config.SummaryMock, logging.Component(logger, "stats"))

	router := server.NewRouter(fileHandler, summaryHandler, server.Options{
		WorkerName: cfg.WorkerName,
		JWTSecret:  cfg.APIJWTSecret,
		Logger:     logging.Component(logger, "http"),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
		// No WriteTimeout: uploads are bounded by UPLOAD_TIMEOUT per call instead.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-sig:
			level.Info(logger).Log("msg", "terminating", "signal", s)
			return fmt.Errorf("%w: %s", errSignal, s)
		}
	})

	group.Go(func() error {
		level.Info(logger).Log("msg", "server listening",
			"addr", srv.Addr,
			"env", cfg.AppEnv,
			"storage", cfg.StorageBackend,
			"metadata", cfg.MetadataBackend,
			"summary", cfg.SummaryProfile,
			"auth", cfg.APIJWTSecret != "",
		)
		level.Info(logger).Log("msg", fmt.Sprintf("swagger UI at http://localhost:%s/swagger/index.html", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		level.Info(logger).Log("msg", "graceful shutdown of server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return ctx.Err()
	})

	err = group.Wait()
	if err != nil && !isShutdown(err) {
		level.Error(logger).Log("msg", "server stopped with error", "err", err)
		return exitFailure
	}

	level.Info(logger).Log("msg", "server stopped")
	return exitSuccess
}

// newDocstore builds the configured metadata backend and its cleanup.
func newDocstore(ctx context.Context, cfg *config.Config, logger log.Logger) (docstore.Store, func(), error) {
	switch cfg.MetadataBackend {
	case config.MetadataFirestore:
		return docstore.NewFirestoreStore(
			cfg.FirestoreBaseURL,
			cfg.FirestoreProjectID,
			cfg.FirestoreAPIKey,
			cfg.FirestoreToken,
			cfg.RemoteTimeout,
		), func() {}, nil

	case config.MetadataPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return docstore.NewPostgresStore(pool), pool.Close, nil

	default:
		level.Warn(logger).Log("msg", "using in-memory metadata store, records are lost on restart")
		return docstore.NewMemoryStore(), func() {}, nil
	}
}

// newStorage builds the configured object storage backend.
func newStorage(ctx context.Context, cfg *config.Config, logger log.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageStream:
		return storage.NewStreamStorage(
			cfg.StreamBaseURL,
			cfg.StreamLibraryID,
			cfg.StreamAPIKey,
			cfg.StreamPlayerBase,
			cfg.UploadTimeout,
		), nil

	default:
		return storage.NewMinioStorage(
			ctx,
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StoragePublicBase,
			cfg.StorageUseSSL,
			logging.Component(logger, "minio"),
		)
	}
}

func isShutdown(err error) bool {
	return errors.Is(err, errSignal) || errors.Is(err, context.Canceled)
}

// monitorPanic logs a panic with its stack before re-raising it.
func monitorPanic(logger log.Logger) {
	if rec := recover(); rec != nil {
		err := fmt.Sprintf("panic: %v \n stack trace: %s", rec, debug.Stack())
		level.Error(logger).Log("err", err)
		panic(err)
	}
}
