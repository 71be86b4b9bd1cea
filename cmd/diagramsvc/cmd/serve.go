package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/archviz/diagramsvc/internal/config"
	"github.com/archviz/diagramsvc/internal/logging"
	"github.com/archviz/diagramsvc/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket diagram server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	svc, err := service.New(cfg)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		logging.Logger().Error().Err(err).Msg("diagramsvc exited with error")
		return err
	}
	return nil
}
