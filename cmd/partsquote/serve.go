package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/internal/app"
	"github.com/data-power-io/partsquote/internal/httpapi"
	"github.com/data-power-io/partsquote/internal/money"
	"github.com/data-power-io/partsquote/internal/server"
	"github.com/data-power-io/partsquote/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC health service",
	Long: `Serve loads the saved catalog and serves the HTTP API on PORT and the
gRPC health service on GRPC_PORT until interrupted.

The catalog is saved to PostgreSQL when POSTGRES_DATABASE is set and always
mirrored to the local SQLite file. Diagram images go to S3 when S3_BUCKET is
set and are stored inline as data URLs otherwise.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions := session.NewManager(cfg.SessionTTL(), logger.Named("session"))
	sessions.StartSessionCleanup(ctx, cfg.SessionCleanupInterval())

	coord := app.New(st.docs, st.images, sessions, app.Options{
		VATRate: cfg.VATRate(),
		Money:   money.NewFormatter("ko", money.DefaultSuffix),
	}, logger.Named("app"))
	if err := coord.Load(ctx); err != nil {
		return err
	}

	handler := httpapi.NewHandler(coord, logger.Named("http"))
	srv := server.New(server.Options{
		HTTPAddr:        fmt.Sprintf(":%d", cfg.GetInt("PORT", 8080)),
		GRPCAddr:        fmt.Sprintf(":%d", cfg.GetInt("GRPC_PORT", 9090)),
		ShutdownTimeout: cfg.ShutdownTimeout(),
	}, handler.Routes(), st.deps, logger.Named("server"))

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("Shutdown complete", zap.Int("sessions_open", sessions.Len()))
	return nil
}
