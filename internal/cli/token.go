package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/config"
	"github.com/Freeeeeet/shuttle_booking/internal/controller/httpapi"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator JWT for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()

			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is required to issue tokens")
			}

			token, err := httpapi.IssueToken(secret, subject, role, ttl, time.Now())
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "operator name written to the token")
	cmd.Flags().StringVar(&role, "role", httpapi.RoleOps, "operator role: ops or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
