package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/salesdesk/internal/domain/services"
)

func newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Browse contact interaction events",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent contact events",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := services.NewDashboardService(getCliContext(cmd).API).ContactEvents(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contact events")
				return nil
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "WHEN\tCONTACT\tCHANNEL\tEVENT\tBY")
			for _, e := range events {
				by := e.UserPerformedBy
				if by == "" {
					by = e.PerformedBy
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", formatDue(e.OccurredAt), e.Contact, orDash(e.InteractionChannel), e.EventType, orDash(by))
			}
			return w.Flush()
		},
	})
	return cmd
}
