package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		start string
		days  int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate daily schedule instances from active templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer shutdown(a)

			from := a.Lifecycle.Today(time.Now())
			if start != "" {
				from, err = time.Parse(time.DateOnly, start)
				if err != nil {
					return fmt.Errorf("--start must be YYYY-MM-DD: %w", err)
				}
			}

			result, err := a.Schedules.Generate(ctx, from, days)
			if err != nil && result.Failed == 0 {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d schedule instances from %s for %d days, %d failed\n",
				result.Created, from.Format(time.DateOnly), days, result.Failed)
			return err
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first service date, YYYY-MM-DD (default today in hotel timezone)")
	cmd.Flags().IntVar(&days, "days", 14, "number of days to generate")
	return cmd
}
