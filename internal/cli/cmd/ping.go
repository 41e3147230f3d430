package cmd

import (
	"fmt"

	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/bsamaha/docker-registry/internal/cli/ui/components"
	"github.com/bsamaha/docker-registry/internal/cli/ui/styles"
	"github.com/spf13/cobra"
)

func NewPingCommand(a *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the registry API and its container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			healthy := true

			client, err := a.Registry()
			if err != nil {
				return err
			}
			if pingErr := client.Ping(cmd.Context()); pingErr != nil {
				healthy = false
				fmt.Println(styles.RenderError(fmt.Sprintf("API %s: %v", client.BaseURL(), pingErr)))
			} else {
				fmt.Println(styles.RenderSuccess("API " + client.BaseURL()))
			}

			eng, err := a.Engine()
			if err != nil {
				healthy = false
				fmt.Println(styles.RenderError(fmt.Sprintf("Engine: %v", err)))
			} else if status, statusErr := eng.Status(cmd.Context()); statusErr != nil {
				healthy = false
				fmt.Println(styles.RenderError(fmt.Sprintf("Container %s: %v", eng.Container(), statusErr)))
			} else {
				fmt.Printf("Container %s: %s (up %s)\n",
					status.Name, components.ContainerStatusIndicator(status.State), status.Uptime)

				if version, versionErr := eng.RegistryVersion(cmd.Context()); versionErr == nil {
					fmt.Println(styles.RenderInfo("Registry version " + version.String()))
				}
				eng.CheckLayoutCompat(cmd.Context())
			}

			if !healthy {
				return fmt.Errorf("registry is not fully reachable")
			}
			return nil
		},
	}
}
