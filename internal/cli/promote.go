package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/storage/repository"
)

func newPromoteCmd(env *Env) *cobra.Command {
	var demote bool

	cmd := &cobra.Command{
		Use:   "promote [username]",
		Short: "Grant the admin role to a user",
		Long: `Grant the admin role to a user. With --demote the role is reset to user.

Examples:
  billingctl promote alice
  billingctl promote alice --demote`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Roles == nil {
				return errors.New("database connection required")
			}

			role := models.RoleAdmin
			if demote {
				role = models.RoleUser
			}

			err := env.Roles.SetUserRole(cmd.Context(), args[0], role)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("user %q not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to set role: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], role)
			return nil
		},
	}

	cmd.Flags().BoolVar(&demote, "demote", false, "reset the role to user")
	return cmd
}
