package cli

import (
	"fmt"

	"github.com/Freeeeeet/shuttle_booking/internal/app"
	"github.com/Freeeeeet/shuttle_booking/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply, roll back or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.StorageDriver != config.StorageDriverPostgres {
				return fmt.Errorf("migrations require STORAGE_DRIVER=%s", config.StorageDriverPostgres)
			}

			logger, err := app.NewLogger(cfg.Environment)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync()

			ctx := cmd.Context()
			pool, err := app.ConnectDB(ctx, cfg.DBDSN, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator, err := app.NewMigrator(pool, logger)
			if err != nil {
				return err
			}
			defer migrator.Close()

			switch action {
			case "up":
				return migrator.Up(ctx)
			case "down":
				return migrator.Down(ctx)
			default:
				version, err := migrator.Version(ctx)
				if err != nil {
					return err
				}
				logger.Info("Current migration version", zap.Int64("version", version))
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			}
		},
	}
}
