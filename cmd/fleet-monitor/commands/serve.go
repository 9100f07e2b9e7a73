package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the MQTT consumer",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fleet, err := app.NewFleetService(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create fleet service", zap.Error(err))
		return err
	}
	defer fleet.Stop()

	serviceErrChan := make(chan error, 1)
	go func() {
		serviceErrChan <- fleet.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-serviceErrChan:
		if err != nil {
			logger.Error("Service error", zap.Error(err))
			return err
		}
	}

	logger.Info("Fleet service stopped")
	return nil
}
