package cmd

import (
	"fmt"
	"time"

	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/bsamaha/docker-registry/internal/cli/ui/components"
	"github.com/bsamaha/docker-registry/internal/cli/ui/styles"
	"github.com/bsamaha/docker-registry/internal/maintenance"
	"github.com/spf13/cobra"
)

func NewGCCommand(a *cli.App) *cobra.Command {
	var untagged bool

	gcCmd := &cobra.Command{
		Use:   "gc",
		Short: "Run garbage collection and restart the registry",
		Long: `Run the registry's garbage collector inside its container to reclaim
blobs that no manifest references anymore, then restart the container so
the server lets go of its cached state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.Registry()
			if err != nil {
				return err
			}
			eng, err := a.Engine()
			if err != nil {
				return err
			}

			wf := maintenance.NewWorkflow(client, eng, maintenance.Options{
				DeleteUntagged: untagged || a.Config.GC.DeleteUntagged,
				RestartWait:    time.Duration(a.Config.GC.RestartWait) * time.Second,
			})

			var report *maintenance.Report
			runErr := components.RunSpinner("Running garbage collection", func() error {
				var wfErr error
				report, wfErr = wf.GarbageCollect(cmd.Context())
				return wfErr
			})

			if report != nil && runErr == nil {
				fmt.Println(styles.RenderSuccess(fmt.Sprintf(
					"Garbage collection finished in %s (%d run(s), %d restart(s))",
					report.Duration().Round(time.Millisecond), report.GCRuns, report.Restarts)))
			}
			return runErr
		},
	}

	gcCmd.Flags().BoolVar(&untagged, "untagged", false, "also delete manifests no tag references")

	return gcCmd
}
