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

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"luckydraw/internal/config"
	"luckydraw/internal/handlers"
	"luckydraw/internal/metrics"
	"luckydraw/internal/services"
	"luckydraw/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the multi-tenant draw server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			closer, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return err
	}
	return serveOn(ctx, cfg, ln)
}

// serveOn runs the server on ln until ctx is done. It owns ln.
func serveOn(ctx context.Context, cfg *config.AppConfig, ln net.Listener) error {
	// 1. Tier catalog and snapshot store
	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		ln.Close()
		return err
	}
	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		ln.Close()
		return err
	}
	defer store.Close()
	persister := storage.NewPersister(store, 5*time.Second)

	// 2. Initialize the Lottery Service
	svcCfg := services.ServiceConfig{
		Catalog: catalog.PrizeTiers(),
		Engine: services.EngineConfig{
			TickInterval: cfg.TickInterval,
			Duration:     cfg.RevealDuration,
		},
		SessionTTL: cfg.SessionTTL,
		Store:      store,
		Sink:       persister,
	}
	if cfg.SeedParticipants {
		svcCfg.DefaultParticipants = catalog.Participants
	}
	lotteryService, err := services.NewLotteryService(svcCfg)
	if err != nil {
		ln.Close()
		return err
	}

	// 3. Set up the Gin router
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestid.New(), metrics.Middleware())
	r.Use(handlers.ConfigCORS(cfg.CORSOrigins))

	httpHandler := handlers.NewHTTPHandler(lotteryService)
	httpHandler.RegisterPublicRoutes(r)
	tenantRoutes := r.Group("/")
	tenantRoutes.Use(httpHandler.TenantMiddleware())
	httpHandler.RegisterTenantRoutes(tenantRoutes)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Event streams only end when their session closes, so sessions must
	// close as soon as shutdown starts.
	srv.RegisterOnShutdown(lotteryService.Close)

	// The persister outlives the HTTP server so the last edits are flushed.
	persistCtx, stopPersist := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return persister.Run(persistCtx)
	})

	g.Go(func() error {
		logger.Infof("Server starting on http://%s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 4. Background janitor for inactive sessions
	g.Go(func() error {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := lotteryService.CleanUpInactiveSessions(); n > 0 {
					logger.Infof("Performed cleanup of %d inactive sessions.", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Drop sessions created by requests that were still running.
		lotteryService.Close()
		stopPersist()
		return err
	})

	return g.Wait()
}
