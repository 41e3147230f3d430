package cmd

import (
	"fmt"
	"os"

	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/bsamaha/docker-registry/internal/cli/cmd"
	"github.com/bsamaha/docker-registry/internal/common"
	"github.com/spf13/cobra"

	_ "github.com/joho/godotenv/autoload"
)

var rootCmd = &cobra.Command{Use: "regmaint"}

func InitializeCommands(client *cli.App) {
	rootCmd = cmd.NewRootCommand(client)
	rootCmd.AddCommand(cmd.NewListCommand(client))
	rootCmd.AddCommand(cmd.NewTagsCommand(client))
	rootCmd.AddCommand(cmd.NewDeleteCommand(client))
	rootCmd.AddCommand(cmd.NewGCCommand(client))
	rootCmd.AddCommand(cmd.NewShowCommand(client))
	rootCmd.AddCommand(cmd.NewPingCommand(client))
	rootCmd.AddCommand(cmd.NewVersionCommand(client))
}

func Execute(client *cli.App) {
	InitializeCommands(client)
	cobra.CheckErr(rootCmd.Execute())
	client.Close()
}

func ExecuteCLI(build, commit, date string) {
	buildInfo := &common.BuildConfig{
		BuildVersion: build,
		BuildCommit:  commit,
		BuildDate:    date,
	}

	a, err := cli.NewClientApp(buildInfo)
	if err != nil {
		fmt.Println("Error initializing app:", err)
		os.Exit(1)
	}

	Execute(a)
}
