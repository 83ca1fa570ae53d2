package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	var resetFlag bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access",
		Long:  "Runs the Gmail OAuth flow when no token is saved and prints the authorized address.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			stderr := cmd.ErrOrStderr()
			auth, err := e.authenticator(stderr)
			if err != nil {
				return err
			}
			if resetFlag {
				if err := auth.Logout(); err != nil {
					return fmt.Errorf("failed to remove saved token: %w", err)
				}
				fmt.Fprintln(stderr, "Removed saved token, starting Gmail OAuth flow...")
				if _, err := auth.Login(ctx); err != nil {
					return err
				}
			}

			p, err := e.gmailProvider(ctx, stderr)
			if err != nil {
				return err
			}
			email, err := p.Profile(ctx)
			if err != nil {
				return fmt.Errorf("failed to get profile: %w", err)
			}

			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), jsonAction{OK: true, Action: "auth", Email: email})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as %s\n", email)
			return nil
		},
	}
	cmd.Flags().BoolVar(&resetFlag, "reset", false, "discard the saved token and authorize again")
	return cmd
}
