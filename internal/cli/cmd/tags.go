package cmd

import (
	"fmt"

	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/bsamaha/docker-registry/internal/cli/ui/components"
	"github.com/bsamaha/docker-registry/internal/registry"
	"github.com/bsamaha/docker-registry/pkg/logger"
	"github.com/spf13/cobra"
)

func NewTagsCommand(a *cli.App) *cobra.Command {
	var plain bool
	var digests bool

	tagsCmd := &cobra.Command{
		Use:   "tags <repository>",
		Short: "List the tags of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := args[0]
			if err := registry.ValidateRepository(repo); err != nil {
				return err
			}

			client, err := a.Registry()
			if err != nil {
				return err
			}

			tags, err := client.ListTags(cmd.Context(), repo)
			if err != nil {
				return err
			}

			if len(tags) == 0 {
				fmt.Printf("Repository %s has no tags.\n", repo)
				return nil
			}

			if !digests {
				if plain {
					for _, tag := range tags {
						fmt.Println(tag)
					}
					return nil
				}

				rows := make([][]string, 0, len(tags))
				for _, tag := range tags {
					rows = append(rows, []string{tag})
				}
				fmt.Println(components.SimpleTable([]string{"Tag"}, rows))
				return nil
			}

			rows := make([][]string, 0, len(tags))
			for _, tag := range tags {
				cell := "-"
				dgst, err := client.ResolveDigest(cmd.Context(), repo, tag)
				if err != nil {
					logger.Warn("Failed to resolve digest",
						"repository", repo,
						"tag", tag,
						"error", err)
				} else {
					cell = dgst.String()
				}
				rows = append(rows, []string{tag, cell})
			}

			if plain {
				for _, row := range rows {
					fmt.Printf("%s %s\n", row[0], row[1])
				}
				return nil
			}

			fmt.Println(components.TagTable(rows))
			return nil
		},
	}

	tagsCmd.Flags().BoolVar(&digests, "digests", false, "resolve and show the manifest digest of each tag")
	tagsCmd.Flags().BoolVar(&plain, "plain", false, "print raw lines without decoration")

	return tagsCmd
}
