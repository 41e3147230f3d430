package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/bsamaha/docker-registry/internal/cli/ui/components"
	"github.com/bsamaha/docker-registry/internal/cli/ui/styles"
	"github.com/bsamaha/docker-registry/internal/registry"
	"github.com/bsamaha/docker-registry/pkg/bytesize"
	"github.com/bsamaha/docker-registry/pkg/manifest"
	"github.com/spf13/cobra"
)

func NewShowCommand(a *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <repository> <reference>",
		Short: "Show the manifest behind a tag or digest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, ref := args[0], args[1]
			if err := registry.ValidateRepository(repo); err != nil {
				return err
			}
			if err := registry.ValidateReference(repo, ref); err != nil {
				return err
			}

			client, err := a.Registry()
			if err != nil {
				return err
			}

			env, err := client.GetManifest(cmd.Context(), repo, ref)
			if err != nil {
				return err
			}

			target := repo + ":" + ref
			if strings.Contains(ref, ":") {
				target = repo + "@" + ref
			}

			fmt.Println(styles.Theme.Title.Render(target))
			fmt.Printf("Media type: %s\n", env.MediaType)
			fmt.Printf("Digest:     %s\n", env.Digest)
			if size, sizeErr := env.ContentSize(); sizeErr == nil {
				fmt.Printf("Declared:   %s\n", bytesize.Format(size))
			}
			if ann, annErr := env.Annotations(); annErr == nil && len(ann) > 0 {
				fmt.Println("Annotations:")
				for _, line := range annotationLines(ann) {
					fmt.Println("  " + line)
				}
			}
			fmt.Println()

			if env.IsIndex() {
				return printIndexSummary(env)
			}
			return printManifestSummary(env)
		},
	}
}

// annotationLines renders annotations as sorted key=value lines, keeping
// the output stable across runs.
func annotationLines(ann map[string]string) []string {
	keys := make([]string, 0, len(ann))
	for k := range ann {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+ann[k])
	}
	return lines
}

func printIndexSummary(env *manifest.Envelope) error {
	idx, err := env.Index()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(idx.Manifests))
	for _, desc := range idx.Manifests {
		rows = append(rows, []string{
			desc.Platform.String(),
			shortDigest(desc.Digest),
			bytesize.Format(desc.Size),
		})
	}
	fmt.Println(components.SimpleTable([]string{"Platform", "Digest", "Size"}, rows))
	return nil
}

func printManifestSummary(env *manifest.Envelope) error {
	m, err := env.Manifest()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(m.Layers))
	for i, layer := range m.Layers {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			shortDigest(layer.Digest),
			bytesize.Format(layer.Size),
		})
	}
	fmt.Println(components.SimpleTable([]string{"Layer", "Digest", "Size"}, rows))
	return nil
}
