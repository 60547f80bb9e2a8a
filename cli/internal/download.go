package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDownloadCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "download API_PATH",
		Short: "Download a file from the API",
		Long: `Download a file from an API path, relative to the context's server URL.
Files land in the context's download_dir (default: current directory).

Examples:
  salesdesk download contacts/export/ --name "Q3 contacts.csv"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := getCliContext(cmd).API.Download(cmd.Context(), args[0], name)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "File name to save as (sanitized)")
	return cmd
}
