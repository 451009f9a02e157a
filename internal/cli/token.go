package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/hvpsu/internal/auth"
)

func (a *app) newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with the service secret",
		Long: `Mint an HS256 access token for hvpsud.

The secret must match security.jwt.secret of the server. It is read from
--jwt-secret, HVPSU_JWT_SECRET or the config file.

Example usage:
  HVPSU_JWT_SECRET=... hvpsuctl token --subject alice --role operator
  export HVPSU_TOKEN=$(hvpsuctl token --subject ci --role viewer --ttl 10m)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := a.v.GetString(keyJWTSecret)
			if secret == "" {
				return auth.ErrNoSecret
			}
			subject, _ := cmd.Flags().GetString("subject")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			token, err := auth.GenerateAccessToken(subject, auth.Role(role), secret, ttl)
			if err != nil {
				return err
			}

			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"token":      token,
					"subject":    subject,
					"role":       role,
					"expires_at": time.Now().Add(ttl).UTC(),
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().String(keyJWTSecret, "", "HS256 signing secret (security.jwt.secret)")
	cmd.Flags().String("subject", "", "token subject, recorded in the audit log")
	cmd.Flags().String("role", string(auth.RoleOperator), "role: viewer or operator")
	cmd.Flags().Duration("ttl", auth.DefaultTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
