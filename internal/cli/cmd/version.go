package cmd

import (
	"fmt"

	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/bsamaha/docker-registry/internal/common"
	"github.com/spf13/cobra"
)

func NewVersionCommand(a *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the version of regmaint",
		Run: func(cmd *cobra.Command, args []string) {
			info := common.GetVersionInfo(
				a.Config.Build.BuildVersion,
				a.Config.Build.BuildCommit,
				a.Config.Build.BuildDate,
			)
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
		},
	}
}
