package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/salesdesk/internal/domain/entities"
	"github.com/devilmonastery/salesdesk/internal/domain/services"
)

const dateLayout = "2006-01-02 15:04"

func newTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Browse dashboard tasks",
	}

	cmd.AddCommand(newTasksListCommand())
	cmd.AddCommand(newTasksShowCommand())
	return cmd
}

func newTasksListCommand() *cobra.Command {
	var (
		search   string
		tag      string
		openOnly bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := services.NewDashboardService(getCliContext(cmd).API).Tasks(cmd.Context(), search)
			if err != nil {
				return describe(err)
			}
			tasks = services.FilterByTag(tasks, tag)

			now := time.Now()
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tPRIORITY\tDUE\tSTATUS\tTITLE")
			for _, t := range tasks {
				if openOnly && t.IsCompleted() {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, orDash(string(t.Priority)), formatDue(t.DueAt), taskStatus(&t, now), t.Title)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Only tasks whose title or content contains this text")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only tasks tagged with this #hashtag")
	cmd.Flags().BoolVar(&openOnly, "open", false, "Hide completed tasks")
	return cmd
}

func newTasksShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show TASK_ID",
		Short: "Show a task with its notes rendered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCliContext(cmd)
			task, err := services.NewDashboardService(c.API).Task(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			return printMarkdown(cmd.OutOrStdout(), taskMarkdown(task, time.Now()), c.Context.Rendering.Theme)
		},
	}
}

// taskMarkdown lays a task out as a markdown document
func taskMarkdown(t *entities.Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "- **Status:** %s\n", taskStatus(t, now))
	fmt.Fprintf(&b, "- **Priority:** %s\n", orDash(string(t.Priority)))
	fmt.Fprintf(&b, "- **Due:** %s\n", formatDue(t.DueAt))
	if t.AssignedTo != "" {
		fmt.Fprintf(&b, "- **Assigned to:** %s\n", t.AssignedTo)
	}
	if len(t.RelatedContacts) > 0 {
		fmt.Fprintf(&b, "- **Contacts:** %s\n", strings.Join(t.RelatedContacts, ", "))
	}
	if content := strings.TrimSpace(t.Content); content != "" {
		b.WriteString("\n")
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String()
}

func taskStatus(t *entities.Task, now time.Time) string {
	switch {
	case t.IsCompleted():
		return "done"
	case t.IsOverdue(now):
		return "overdue"
	default:
		return "open"
	}
}

func formatDue(due time.Time) string {
	if due.IsZero() {
		return "-"
	}
	return due.Local().Format(dateLayout)
}
