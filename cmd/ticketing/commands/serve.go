package commands

import (
	"os"
	"os/signal"
	"syscall"

	"ticket-marketplace/internal/config"
	"ticket-marketplace/internal/logging"
	"ticket-marketplace/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API until interrupted.

The database is migrated on start. When REDIS_ADDR is set carts and domain
events use redis; otherwise both stay in process. Without
CHECKOUT_BACKEND_URL purchases are confirmed by a local mock backend.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return newPrinter(cmd).Error("Failed to load configuration", err.Error())
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to start")
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.WithError(err).Warn("Shutdown left resources open")
		}
	}()

	if err := app.Run(ctx); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		return err
	}

	logger.Info("Server stopped")
	return nil
}
