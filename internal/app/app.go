// Package app initializes and runs the service: configuration,
// logging, storage selection, domain services, routing and graceful
// shutdown.
package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conduit/internal/articles"
	"conduit/internal/auth"
	"conduit/internal/comments"
	"conduit/internal/config"
	"conduit/internal/credential"
	"conduit/internal/db/jsondb"
	"conduit/internal/db/memorystorage"
	"conduit/internal/db/postgresdb"
	"conduit/internal/db/storage"
	"conduit/internal/directory"
	"conduit/internal/errresponse"
	"conduit/internal/feed"
	"conduit/internal/logger"
	"conduit/internal/router"
)

// App encapsulates the configuration, HTTP handler and storage backend
// needed to run the service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing the logger
// - selecting and setting up storage
// - constructing the domain services and the router
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	if err := logger.Init(app.cfg.LogLevel); err != nil {
		return nil, err
	}
	errresponse.Development = app.cfg.LogLevel == "debug"

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	signingSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.TokenSigningSecretKey)
	if err != nil {
		return nil, fmt.Errorf("error decoding the token signing secret: %w", err)
	}

	credentials := credential.New(app.db, signingSecretKey, app.cfg.TokenTTL)
	users := directory.New(app.db)
	articleStore := articles.New(app.db)
	commentStore := comments.New(app.db)
	feedEngine := feed.New(users, articleStore)

	app.httpHandler = router.New(
		credentials,
		users,
		articleStore,
		commentStore,
		feedEngine,
		app.db,
		auth.New(credentials),
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support. It
// listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	if cfg.DatabaseDSN != "" {
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)
	}

	if cfg.DBFileName != "" {
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
