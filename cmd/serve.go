package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"inventory-service/internal/api"
	"inventory-service/internal/domain"
	"inventory-service/internal/query"
	"inventory-service/internal/store"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var warm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, warm)
		},
	}
	cmd.Flags().BoolVar(&warm, "warm", true, "load the catalog and categories at startup")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, warm bool) error {
	// The health server has to exist before the service can report to it.
	var grpcHealth *api.GRPCHealth
	a, err := bootstrap(ctx, root, func(ready bool) {
		if grpcHealth != nil {
			grpcHealth.SetCatalogReady(ready)
		}
	})
	if err != nil {
		return err
	}
	logger := a.logger
	grpcHealth = api.NewGRPCHealth(logger)
	logger.Info("starting service",
		zap.String("app_env", a.cfg.AppEnv),
		zap.String("log_level", a.cfg.LogLevel))

	// --- Initialize API Handlers ---
	httpAPIHandler := api.NewHTTPHandler(a.service, a.metrics, logger, a.cfg.HttpServer.BasePath)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger, a.cfg.AppEnv)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  a.cfg.HttpServer.TimeoutRead,
		WriteTimeout: a.cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  a.cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", a.cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe error", zap.Error(err))
		}
		logger.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := api.NewGRPCServer(grpcHealth)
	grpcListener, err := net.Listen("tcp", ":"+a.cfg.GrpcServer.Port)
	if err != nil {
		a.close()
		return err
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("port", a.cfg.GrpcServer.Port))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatal("gRPC server Serve error", zap.Error(err))
		}
		logger.Info("gRPC server has stopped")
	}()

	if warm {
		go warmCatalog(ctx, a, logger)
	}

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, grpcServer, grpcHealth, a.service, a.kv, shutdownComplete)

	<-shutdownComplete // Block until graceful shutdown is complete
	logger.Info("service shutdown sequence finished")
	_ = logger.Sync()
	return nil
}

func setupBaseMiddleware(router *chi.Mux, logger *zap.Logger, appEnv string) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	if appEnv == "development" {
		router.Use(middleware.Logger) // Chi's request logger
	}
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second)) // Default timeout for requests
	logger.Debug("base HTTP middleware registered")
}

// warmCatalog loads the first page and the category list so the first
// request is served from cache.
func warmCatalog(ctx context.Context, a *app, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
	defer cancel()

	started := time.Now()
	if _, err := a.service.ListProducts(ctx, domain.Filters{}, domain.Pagination{Page: 1}); err != nil {
		logger.Warn("catalog warm-up failed", zap.Error(err))
		return
	}
	if _, err := a.service.Categories(ctx); err != nil {
		logger.Warn("category warm-up failed", zap.Error(err))
		return
	}
	logger.Info("catalog warmed", zap.Duration("elapsed", time.Since(started)))
}

func waitForShutdown(
	logger *zap.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	grpcHealth *api.GRPCHealth,
	svc *query.Service,
	kv store.KVStore,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete) // Ensure channel is closed when function exits

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Info("received signal, starting graceful shutdown", zap.String("signal", receivedSignal.String()))

	// Create a context with a timeout for the shutdown process.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	// Health checkers see NOT_SERVING before connections drain.
	grpcHealth.Shutdown()

	logger.Info("attempting to gracefully shut down gRPC server")
	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	logger.Info("attempting to gracefully shut down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("HTTP server gracefully shut down")
	}

	// Wait for gRPC to finish shutting down or timeout
	select {
	case <-stoppedGrpc:
		logger.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		logger.Warn("gRPC server graceful shutdown timed out, forcing stop", zap.Error(shutdownCtx.Err()))
		grpcServer.Stop()
	}

	// Let simulated remote writes finish before the store goes away.
	svc.Wait()

	if kv != nil {
		if err := kv.Close(); err != nil {
			logger.Warn("error closing storage", zap.Error(err))
		}
	}

	logger.Info("graceful shutdown sequence completed")
}
