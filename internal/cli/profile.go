package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("Username:  %s\nFull name: %s\nAvatar:    %s\n", p.Username, p.FullName, p.AvatarURL)
			return nil
		},
	}

	cmd.AddCommand(newProfileSetCmd(a), newProfileAvatarCmd(a))
	return cmd
}

func newProfileSetCmd(a *app) *cobra.Command {
	var username, fullName string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update username and full name",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.client.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("username") {
				username = current.Username
			}
			if !cmd.Flags().Changed("name") {
				fullName = current.FullName
			}

			p, err := a.client.SaveProfile(cmd.Context(), username, fullName)
			if err != nil {
				return err
			}
			a.printf("Profile updated: %s (%s)\n", p.Username, p.FullName)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "new username")
	cmd.Flags().StringVar(&fullName, "name", "", "new full name")
	return cmd
}

func newProfileAvatarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "avatar <image file>",
		Short: "Upload a new avatar image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open image: %w", err)
			}
			defer f.Close()

			p, err := a.client.UploadAvatar(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			a.printf("Avatar updated: %s\n", p.AvatarURL)
			return nil
		},
	}
}
