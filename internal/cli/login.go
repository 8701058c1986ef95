package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/manishahirrao/postpilot/users"
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var (
		email       string
		password    string
		accountType string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to PostPilot",
		Long:  "Sign in with email and password and store the session for later commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}

			user, err := opts.app.Auth.Login(cmd.Context(), email, password, accountType)
			if err != nil {
				return userError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s account)\n", user.Email, user.AccountType)
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: %s\n", opts.app.Auth.DashboardPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVar(&accountType, "account-type", string(users.AccountPersonal), "Account type: personal or company")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Long:  "Restore the stored session, refreshing it if needed, and show the signed in user.",
		RunE: func(cmd *cobra.Command, args []string) error {
			state := opts.app.Auth.Bootstrap(cmd.Context())
			out := cmd.OutOrStdout()
			if !state.Authenticated {
				fmt.Fprintln(out, "Not signed in")
				return nil
			}

			u := state.User
			fmt.Fprintf(out, "Email:     %s\n", u.Email)
			fmt.Fprintf(out, "Name:      %s\n", u.Profile.FullName)
			fmt.Fprintf(out, "Account:   %s\n", u.AccountType)
			fmt.Fprintf(out, "Plan:      %s\n", u.Profile.SubscriptionPlan)
			fmt.Fprintf(out, "Credits:   %d/%d\n", u.Profile.Credits, u.Profile.MaxCredits)
			fmt.Fprintf(out, "Dashboard: %s\n", users.DashboardPath(u))
			return nil
		},
	}
}
