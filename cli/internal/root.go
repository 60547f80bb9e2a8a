package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/pkg/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const cliContextKey contextKey = "cliContext"

// CliContext holds shared CLI context
type CliContext struct {
	Config  *Config
	Context *Context
	Tokens  *FileTokenStore
	API     *client.Client
	Logger  *slog.Logger
}

// logFlags are the persistent logging flags shared by every command
type logFlags struct {
	level       string
	file        string
	alsoConsole bool
	format      string
}

// NewRootCommand creates the root cobra command
func NewRootCommand() *cobra.Command {
	var (
		ctx   CliContext
		flags logFlags
	)

	rootCmd := &cobra.Command{
		Use:           "salesdesk",
		Short:         "CLI for the Salesdesk sales workspace",
		Long:          `A command line interface for accounts, teams, tasks and contact activity via the Salesdesk API.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := flags.setup(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}
			ctx.Logger = log.With("component", "cli")
			ctx.Logger.Debug("CLI started", "command", cmd.CommandPath())

			if isConfigCommand(cmd) {
				config, err := LoadConfig()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				ctx.Config = config
			} else if err := ctx.connect(cmd.ErrOrStderr()); err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey, &ctx))
			return nil
		},
	}

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newProfileCommand())
	rootCmd.AddCommand(newTeamsCommand())
	rootCmd.AddCommand(newTasksCommand())
	rootCmd.AddCommand(newEventsCommand())
	rootCmd.AddCommand(newDownloadCommand())
	rootCmd.AddCommand(newConfigCommand())

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.level, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.file, "log-file", "", "Write logs to this file instead of stderr")
	pf.BoolVar(&flags.alsoConsole, "alsologtostderr", false, "With --log-file, log to stderr as well")
	pf.StringVar(&flags.format, "log-format", "text", "Log format (text, json)")

	return rootCmd
}

// setup builds the command's logger. Records go to stderr unless a log
// file is given.
func (f logFlags) setup(stderr io.Writer) (*slog.Logger, error) {
	log, _, err := logger.SetupLogger(logger.Config{
		Level:       logger.ParseLevel(f.level),
		Format:      f.format,
		File:        f.file,
		Console:     stderr,
		AlsoConsole: f.alsoConsole,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return log, nil
}

// isConfigCommand reports whether cmd only edits local configuration
func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" {
			return true
		}
	}
	return false
}

// connect loads the current context and builds its pipeline client
func (c *CliContext) connect(stderr io.Writer) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	current, err := config.GetCurrentContext()
	if err != nil {
		return err
	}
	path, err := CredentialsPath(config.CurrentContext)
	if err != nil {
		return err
	}

	c.Config = config
	c.Context = current
	c.Tokens = NewFileTokenStore(path)

	opts := []client.Option{
		client.WithLogger(c.Logger),
		client.WithSessionExpiredHandler(func(context.Context) {
			fmt.Fprintln(stderr, "Session expired. Please run 'salesdesk auth login' again.")
		}),
	}
	if current.Server.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(current.Server.RateLimit, 1))
	}
	if current.DownloadDir != "" {
		opts = append(opts, client.WithDownloadDir(current.DownloadDir))
	}

	c.API, err = client.New(current.APIConfig(), c.Tokens, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// getCliContext extracts the CLI context from the command context
func getCliContext(cmd *cobra.Command) *CliContext {
	return cmd.Context().Value(cliContextKey).(*CliContext)
}
