package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archon-backend/internal/config"
	delivery "archon-backend/internal/delivery/http"
	"archon-backend/internal/delivery/websocket"
	"archon-backend/internal/infrastructure/db"
	"archon-backend/internal/infrastructure/fcm"
	"archon-backend/internal/infrastructure/telegram"
	"archon-backend/internal/repository"
	"archon-backend/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveMigrate  bool
	serveMemory   bool
	serveShutdown time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server, live feed and alerts",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "run migrations before serving")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep data in memory instead of Postgres")
	serveCmd.Flags().DurationVar(&serveShutdown, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []config.Option
	if serveMemory {
		opts = append(opts, config.WithValue("storage", config.StorageMemory))
	}
	rt, err := bootstrap(ctx, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, log := rt.cfg, rt.log

	if serveMigrate && rt.pool != nil {
		if err := db.Migrate(ctx, rt.pool, cfg.Realtime.Channel); err != nil {
			log.Error("migration failed", zap.Error(err))
			return err
		}
		log.Info("migration complete")
	}

	// 1. Storage and change feed
	be := newBackend(rt)
	if be.listener != nil {
		go be.listener.Run(ctx)
	}

	// 2. Device tokens
	tokens := repository.NewTokenRepository()

	// 3. Alert channels
	pusher, err := fcm.NewClient(ctx, fcm.Config{
		CredentialsPath: cfg.Firebase.CredentialsPath,
		CredentialsJSON: cfg.Firebase.CredentialsJSON,
	}, log)
	if err != nil {
		log.Error("firebase init failed", zap.Error(err))
		return err
	}
	messenger := telegram.NewClient(telegram.Config{
		BotToken:  cfg.Telegram.BotToken,
		BaseURL:   cfg.Telegram.BaseURL,
		RateLimit: cfg.Telegram.RateLimit,
	}, log)

	// 4. Usecases
	api := be.api(log)
	dashboard := usecase.NewDashboardService(api, log)
	alerts := usecase.NewAlertService(be.hub, be.bots, tokens, pusher, messenger, cfg.Alerts.Cooldown, log)
	alerts.Start()
	defer alerts.Stop()

	// 5. Delivery
	router := delivery.NewRouter(delivery.RouterConfig{
		API:            api,
		Dashboard:      dashboard,
		Tokens:         tokens,
		Live:           websocket.NewHandler(api, dashboard, log),
		APIKey:         cfg.SupabaseAnonKey,
		RateLimit:      cfg.API.RateLimit,
		RateLimitBurst: cfg.API.RateLimitBurst,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("storage", cfg.Storage),
			zap.Bool("push_enabled", pusher.IsEnabled()),
			zap.Bool("telegram_enabled", messenger.IsEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	return nil
}
