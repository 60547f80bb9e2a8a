package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage API contexts",
		Long: `Manage the API contexts the CLI can talk to. Each context has its own
server URL, request settings and stored credentials.`,
	}

	cmd.AddCommand(
		newConfigViewCommand(),
		newCurrentContextCommand(),
		newUseContextCommand(),
		newListContextsCommand(),
		newSetServerCommand(),
		newDeleteContextCommand(),
	)
	return cmd
}

// saveConfig persists the command's config and reports msg on success
func saveConfig(cmd *cobra.Command, msg string, args ...any) error {
	if err := SaveConfig(getCliContext(cmd).Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), msg+"\n", args...)
	return nil
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Print the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(getCliContext(cmd).Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			path, _ := GetConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, data)
			return nil
		},
	}
}

func newCurrentContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Print the active context name",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), getCliContext(cmd).Config.CurrentContext)
			return nil
		},
	}
}

func newUseContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use-context NAME",
		Short: "Switch the active context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getCliContext(cmd).Config.SetCurrentContext(args[0]); err != nil {
				return err
			}
			return saveConfig(cmd, "Switched to context %q", args[0])
		},
	}
}

func newListContextsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list-contexts",
		Aliases: []string{"get-contexts"},
		Short:   "List contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := getCliContext(cmd).Config
			names := config.ContextNames()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contexts configured")
				return nil
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "CURRENT\tNAME\tSERVER\tTIMEOUT\tTHEME")
			for _, name := range names {
				ctx := config.Contexts[name]
				marker := " "
				if name == config.CurrentContext {
					marker = "*"
				}
				timeout := "-"
				if ctx.Server.Timeout > 0 {
					timeout = ctx.Server.Timeout.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", marker, name, ctx.Server.URL, timeout, orDash(ctx.Rendering.Theme))
			}
			return w.Flush()
		},
	}
}

func newSetServerCommand() *cobra.Command {
	var (
		theme       string
		downloadDir string
		timeout     time.Duration
		maxRetries  int
		rateLimit   float64
	)

	cmd := &cobra.Command{
		Use:   "set-server NAME API_URL",
		Short: "Create or update a context",
		Example: `  salesdesk config set-server staging https://staging.salesdesk.app/api/ --timeout 10s
  salesdesk config set-server dev http://localhost:8000/api/ --max-retries 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, apiURL := args[0], args[1]
			if err := validateAPIURL(apiURL); err != nil {
				return err
			}

			config := getCliContext(cmd).Config
			ctx, ok := config.Contexts[name]
			if !ok {
				ctx = newContext(apiURL)
			}
			ctx.Server.URL = apiURL

			flags := cmd.Flags()
			if flags.Changed("theme") {
				ctx.Rendering.Theme = theme
			}
			if flags.Changed("download-dir") {
				ctx.DownloadDir = downloadDir
			}
			if flags.Changed("timeout") {
				ctx.Server.Timeout = timeout
			}
			if flags.Changed("max-retries") {
				if maxRetries < 0 {
					return fmt.Errorf("--max-retries cannot be negative")
				}
				ctx.Server.MaxRetries = &maxRetries
			}
			if flags.Changed("rate-limit") {
				ctx.Server.RateLimit = rateLimit
			}
			config.AddContext(name, ctx)

			return saveConfig(cmd, "Context %q saved", name)
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "", "Markdown rendering theme (auto, dark, light, notty)")
	cmd.Flags().StringVar(&downloadDir, "download-dir", "", "Directory downloads are saved to")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-request timeout")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Retries for transient failures")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "Maximum requests per second (0 for no limit)")
	return cmd
}

func newDeleteContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-context NAME",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getCliContext(cmd).Config.DeleteContext(args[0]); err != nil {
				return err
			}
			return saveConfig(cmd, "Context %q deleted", args[0])
		},
	}
}
