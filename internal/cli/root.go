// Package cli команды командной строки сервиса бронирования шаттлов
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Freeeeeet/shuttle_booking/internal/app"
	"github.com/Freeeeeet/shuttle_booking/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shuttle",
		Short:         "Hotel shuttle reservations with ticket delivery",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newNotifyCmd())
	root.AddCommand(newTemplatesCmd())
	root.AddCommand(newTokenCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap загружает конфиг, логгер и собирает приложение
func bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func shutdown(a *app.App) {
	a.Close()
	_ = a.Logger.Sync()
}

func logStart(a *app.App, command string) {
	a.Logger.Info("Starting shuttle booking",
		zap.String("command", command),
		zap.String("environment", a.Config.Environment),
		zap.String("storage", a.Config.StorageDriver),
	)
}
