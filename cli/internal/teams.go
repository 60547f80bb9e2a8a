package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/domain/services"
)

func newTeamsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Manage teams and invitations",
	}

	cmd.AddCommand(newTeamsListCommand())
	cmd.AddCommand(newTeamsCreateCommand())
	cmd.AddCommand(newTeamsInviteCommand())
	cmd.AddCommand(newTeamsInvitesCommand())
	return cmd
}

func teamService(cmd *cobra.Command) *services.TeamService {
	return services.NewTeamService(getCliContext(cmd).API)
}

func newTeamsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			teams, err := teamService(cmd).List(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if len(teams) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No teams")
				return nil
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tPLAN\tCREATED BY")
			for _, t := range teams {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, orDash(t.Plan), orDash(t.CreatedBy))
			}
			return w.Flush()
		},
	}
}

func newTeamsCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := teamService(cmd).Create(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Team %q created (id %s)\n", team.Name, team.ID)
			return nil
		},
	}
}

func newTeamsInviteCommand() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "invite TEAM_ID EMAIL",
		Short: "Invite someone to a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			invite, err := teamService(cmd).Invite(cmd.Context(), args[0], args[1], role)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invited %s as %s\n", invite.Email, invite.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", auth.RoleMember, "Team role (ADMIN or MEMBER)")
	return cmd
}

func newTeamsInvitesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "invites TEAM_ID",
		Short: "List a team's invitations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invites, err := teamService(cmd).Invites(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			if len(invites) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No invitations")
				return nil
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "EMAIL\tROLE\tSTATUS")
			for _, inv := range invites {
				fmt.Fprintf(w, "%s\t%s\t%s\n", inv.Email, inv.Role, orDash(string(inv.Status)))
			}
			return w.Flush()
		},
	}
}
