package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kube-rca/smsgate/internal/config"
	"github.com/kube-rca/smsgate/internal/handler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook HTTP server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if devMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, store, err := newDispatchService(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var history handler.DeliveryStore
	if store != nil {
		history = store
	}

	router := handler.NewRouter(
		handler.NewDispatchHandler(svc, dispatchOptions(cfg)),
		handler.NewDeliveryHandler(history),
		authMiddleware(cfg.HTTPServer),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("Starting smsgate")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func authMiddleware(cfg config.HTTPServerConfig) gin.HandlerFunc {
	if cfg.NoAuth {
		log.Warn().Msg("Running without HTTP authentication")
		return handler.AnonymousAuth()
	}
	if cfg.Username == "" {
		log.Warn().Msg("http_server.username is empty, every authenticated request will be refused")
	}
	log.Info().Bool("bcrypt", handler.IsBcryptHash(cfg.Password)).Msg("Running with HTTP authentication")
	return handler.BasicAuthMiddleware(cfg.Username, cfg.Password)
}
