package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/domain/services"
)

func newProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your profile",
	}

	cmd.AddCommand(newProfileUpdateCommand())
	cmd.AddCommand(newProfileAvatarCommand())
	return cmd
}

// currentUserID prefers the id in the stored access token and falls back
// to asking the API.
func currentUserID(cmd *cobra.Command) (string, error) {
	cliCtx := getCliContext(cmd)
	if creds, err := cliCtx.Tokens.Load(); err == nil && creds.UserID != "" {
		return creds.UserID, nil
	}
	user, err := authService(cmd).CurrentUser(cmd.Context())
	if err != nil {
		return "", describe(err)
	}
	return user.ExternalID, nil
}

func newProfileUpdateCommand() *cobra.Command {
	var firstName, lastName, title, business, industry, website string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your name or business profile",
		Example: `  salesdesk profile update --first-name Ada --last-name Lovelace
  salesdesk profile update --title "Account Executive" --website https://acme.example`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var update entities.ProfileUpdate
			if flags.Changed("first-name") {
				update.FirstName = &firstName
			}
			if flags.Changed("last-name") {
				update.LastName = &lastName
			}

			// The API replaces the profile object as a whole
			if flags.Changed("title") || flags.Changed("business") || flags.Changed("industry") || flags.Changed("website") {
				user, err := authService(cmd).CurrentUser(cmd.Context())
				if err != nil {
					return describe(err)
				}
				profile := user.Profile
				if flags.Changed("title") {
					profile.Title = title
				}
				if flags.Changed("business") {
					profile.BusinessName = business
				}
				if flags.Changed("industry") {
					profile.BusinessIndustry = industry
				}
				if flags.Changed("website") {
					profile.Website = website
				}
				update.Profile = &profile
			}

			userID, err := currentUserID(cmd)
			if err != nil {
				return err
			}
			user, err := services.NewUserService(getCliContext(cmd).API).UpdateProfile(cmd.Context(), userID, update)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile updated for %s\n", user.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&title, "title", "", "Job title")
	cmd.Flags().StringVar(&business, "business", "", "Business name")
	cmd.Flags().StringVar(&industry, "industry", "", "Business industry")
	cmd.Flags().StringVar(&website, "website", "", "Business website (absolute URL)")
	return cmd
}

func newProfileAvatarCommand() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "avatar FILE",
		Short: "Upload a new avatar image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			userID, err := currentUserID(cmd)
			if err != nil {
				return err
			}

			var progress func(int)
			if !quiet {
				errOut := cmd.ErrOrStderr()
				progress = func(percent int) {
					fmt.Fprintf(errOut, "\rUploading... %3d%%", percent)
					if percent >= 100 {
						fmt.Fprintln(errOut)
					}
				}
			}
			user, err := services.NewUserService(getCliContext(cmd).API).UploadAvatar(cmd.Context(), userID, args[0], f, progress)
			if err != nil {
				return describe(err)
			}
			if user.Avatar != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Avatar updated: %s\n", *user.Avatar)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Avatar updated")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide upload progress")
	return cmd
}
