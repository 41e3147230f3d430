// the root command is the entrypoint for the regmaint cli
package cmd

import (
	"context"
	"fmt"

	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewRootCommand creates a new root command
func NewRootCommand(a *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "regmaint",
		Short: "Maintenance client for a self-hosted container registry",
		Long: `regmaint talks to a running distribution registry to list repositories
and tags, delete tags or whole repositories, and garbage-collect the
freed storage. When the registry API refuses a delete, it falls back to
cleaning the storage directory inside the registry container.`,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Usage stays on for argument mistakes; once arguments have
			// validated, a failure should surface the error alone.
			cmd.SilenceUsage = true
		},
		Run: func(cmd *cobra.Command, args []string) {
			color.Green("regmaint %s", a.Config.GetVersion())
			color.Blue("Registry %s", registryStatus(cmd.Context(), a))

			fmt.Println()
			fmt.Println("Use \"regmaint --help\" for more information about a command.")
		},
	}
}

func registryStatus(ctx context.Context, a *cli.App) string {
	client, err := a.Registry()
	if err != nil {
		return fmt.Sprintf("Error: %s", err)
	}

	if err := client.Ping(ctx); err != nil {
		return fmt.Sprintf("%s (unreachable)", client.BaseURL())
	}
	return fmt.Sprintf("%s (reachable)", client.BaseURL())
}
