package cmd

import (
	"fmt"
	"strconv"

	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/bsamaha/docker-registry/internal/cli/ui/components"
	"github.com/bsamaha/docker-registry/internal/registry"
	"github.com/spf13/cobra"
)

func NewListCommand(a *cli.App) *cobra.Command {
	var plain bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the repositories in the registry catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Registry()
			if err != nil {
				return err
			}

			repos, err := client.ListRepositories(cmd.Context())
			if err != nil {
				return err
			}

			if plain {
				for _, repo := range repos {
					fmt.Println(repo)
				}
				return nil
			}

			if len(repos) == 0 {
				fmt.Println("The catalog is empty.")
				return nil
			}

			rows := make([][]string, 0, len(repos))
			for _, repo := range repos {
				tags, err := client.ListTags(cmd.Context(), repo)
				if err != nil && !registry.IsNotFound(err) {
					return err
				}
				rows = append(rows, []string{repo, strconv.Itoa(len(tags))})
			}

			fmt.Println(components.RepositoryTable(rows))
			return nil
		},
	}

	listCmd.Flags().BoolVar(&plain, "plain", false, "print one repository per line without decoration")

	return listCmd
}
