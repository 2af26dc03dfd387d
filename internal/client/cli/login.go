package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/session"
	"github.com/dmitrijs2005/memoria/internal/common"
	"github.com/spf13/cobra"
)

func (r *runner) newLoginCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the access token used for API requests",
		Long:  "Store the access token used for API requests. Without --token the token is read from standard input.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.requireApp()
			if err != nil {
				return err
			}

			if token == "" {
				secret, err := GetSecret(r.in, "Access token", r.out)
				if err != nil {
					return fmt.Errorf("read token: %w", err)
				}
				defer common.WipeByteArray(secret)
				token = string(secret)
			}

			if err := app.session.Login(cmd.Context(), token); err != nil {
				return err
			}

			if exp, ok := session.ExpiresAt(token); ok {
				fmt.Fprintf(r.out, "Logged in (token expires %s)\n", exp.Local().Format(time.RFC3339))
			} else {
				fmt.Fprintln(r.out, "Logged in")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Access token")

	return cmd
}

func (r *runner) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.requireApp()
			if err != nil {
				return err
			}
			if err := app.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(r.out, "Logged out")
			return nil
		},
	}
}

func (r *runner) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a usable access token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.requireApp()
			if err != nil {
				return err
			}
			st, err := app.session.Status(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case st.Expired:
				fmt.Fprintf(r.out, "Token expired at %s\n", st.ExpiresAt.Local().Format(time.RFC3339))
				return nil
			case !st.LoggedIn:
				fmt.Fprintln(r.out, "Not logged in")
				return nil
			}

			fmt.Fprintln(r.out, "Logged in")
			if !st.Since.IsZero() {
				fmt.Fprintf(r.out, "Since: %s\n", st.Since.Local().Format(time.RFC3339))
			}
			if !st.ExpiresAt.IsZero() {
				fmt.Fprintf(r.out, "Expires: %s\n", st.ExpiresAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
}
