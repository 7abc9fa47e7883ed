package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSignupCmd(a *app) *cobra.Command {
	var email, fullName string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.promptPassword("Password: ")
			if err != nil {
				return err
			}

			resp, err := a.client.Signup(cmd.Context(), email, password, fullName)
			if err != nil {
				return err
			}

			if resp.ConfirmationPending {
				a.printf("Check your email (%s) for a confirmation link.\n", resp.Email)
				return nil
			}
			a.printf("Account created for %s. You can now log in.\n", resp.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&fullName, "name", "", "full name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.promptPassword("Password: ")
			if err != nil {
				return err
			}

			user, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.printf("Signed in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("Signed out\n")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.Session(cmd.Context())
			if err != nil {
				return err
			}
			if user == nil {
				a.printf("Not signed in\n")
				return nil
			}
			a.printf("%s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
}

func newConfirmCmd(a *app) *cobra.Command {
	var tokenHash, typ string

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm an email address using the parameters from the emailed link",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Confirm(cmd.Context(), tokenHash, typ)
			if err != nil {
				return fmt.Errorf("%w (run `taskctl resend --email <address>` to get a new link)", err)
			}
			a.printf("%s\n", resp.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenHash, "token-hash", "", "token_hash from the link")
	cmd.Flags().StringVar(&typ, "type", "signup", "type from the link")
	return cmd
}

func newResendCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend",
		Short: "Send a new confirmation email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.ResendConfirmation(cmd.Context(), email); err != nil {
				return err
			}
			a.printf("Confirmation email sent to %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
