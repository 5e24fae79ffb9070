package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotifyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Run one notification batch for undelivered tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer shutdown(a)

			if limit <= 0 {
				limit = a.Config.NotifyBatchSize
			}

			result, err := a.Queue.ProcessBatch(ctx, limit, a.Queue.MaxAttempts())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d success=%d failed=%d\n",
				result.Processed, result.Success, result.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max bookings to process (default NOTIFY_BATCH_SIZE)")
	return cmd
}
