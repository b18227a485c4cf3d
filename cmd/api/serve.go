package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urfave/cli/v3"

	handler "github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/http"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/app"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/config"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/logging"
)

const shutdownTimeout = 15 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API (default)",
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.Server.LogLevel)

	store, closeStore, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := buildRegistry(cfg)
	svc := newService(cfg, registry, store, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting PlaylistTransfer API", "addr", srv.Addr)
		logger.Info("Transfer settings", "workers", cfg.Transfer.Workers, "batch_size", cfg.Transfer.BatchSize, "history", cfg.History.Driver)
		logger.Info("Registered providers", "providers", registry.Available(), "mode", cfg.Platforms.Mode)
		logger.Infof("Swagger UI: http://localhost%s/swagger/index.html", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Closing the service ends every progress stream so Shutdown is not held
	// open by SSE clients.
	if err := svc.Close(shutdownCtx); err != nil {
		logger.Warn("transfers still running at shutdown", "err", err)
	}
	return srv.Shutdown(shutdownCtx)
}

func newRouter(svc *app.Service, logger *log.Logger) *gin.Engine {
	if logger.GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(logger.WithPrefix("http")))

	h := handler.NewHandler(svc, logger)
	h.RegisterRoutes(r)

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return r
}
