package cli

import (
	"fmt"

	"github.com/manishahirrao/postpilot/signup"
	"github.com/manishahirrao/postpilot/users"
	"github.com/spf13/cobra"
)

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var (
		form        signup.Form
		accountType string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a PostPilot account",
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := users.ParseAccountType(accountType)
			if err != nil {
				return err
			}
			form.AccountType = at
			if form.ConfirmPassword == "" {
				form.ConfirmPassword = form.Password
			}

			wizard := signup.NewWizard(opts.app.Identity, opts.app.Auth)
			wizard.Form = form
			for wizard.Step() != signup.StepReview {
				if err := wizard.Next(); err != nil {
					return fmt.Errorf("%s: %w", wizard.Step(), err)
				}
			}

			result, err := wizard.Submit(cmd.Context())
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			if result.Message != "" {
				fmt.Fprintln(out, result.Message)
			}
			if result.SignedIn {
				fmt.Fprintf(out, "Signed in as %s\n", result.User.Email)
			}
			fmt.Fprintf(out, "Next: %s\n", result.NextPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountType, "account-type", string(users.AccountPersonal), "Account type: personal or company")
	cmd.Flags().StringVar(&form.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "Password (8+ characters, upper, lower and a digit)")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "Password confirmation (defaults to --password)")
	cmd.Flags().StringVar(&form.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&form.Headline, "headline", "", "Profile headline")
	cmd.Flags().StringVar(&form.CompanyName, "company", "", "Company name (company accounts)")
	cmd.Flags().StringVar(&form.Industry, "industry", "", "Industry")
	cmd.Flags().StringVar(&form.Plan, "plan", users.PlanFree, "Subscription plan")
	cmd.Flags().BoolVar(&form.AcceptedTerms, "accept-terms", false, "Accept the terms of service")
	return cmd
}
