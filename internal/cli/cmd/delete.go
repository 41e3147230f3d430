package cmd

import (
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/bsamaha/docker-registry/internal/cli"
	"github.com/bsamaha/docker-registry/internal/cli/ui/components"
	"github.com/bsamaha/docker-registry/internal/cli/ui/styles"
	"github.com/bsamaha/docker-registry/internal/maintenance"
	"github.com/bsamaha/docker-registry/internal/registry"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
)

func NewDeleteCommand(a *cli.App) *cobra.Command {
	var yes bool
	var force bool
	var dryRun bool

	deleteCmd := &cobra.Command{
		Use:   "delete <repository> [tag]",
		Short: "Delete a tag or a whole repository, then garbage-collect",
		Long: `Delete a single tag, or every tag of a repository when no tag is given.
Each deletion resolves the manifest digest, deletes the manifest through
the registry API, and falls back to removing the storage path inside the
registry container when the API path fails. Every deletion is followed by
a garbage-collection run and a registry restart.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := args[0]
			tag := ""
			if len(args) == 2 {
				tag = args[1]
			}

			if err := registry.ValidateRepository(repo); err != nil {
				return err
			}
			if tag != "" {
				if err := registry.ValidateReference(repo, tag); err != nil {
					return err
				}
			}

			target := repo
			if tag != "" {
				target = repo + ":" + tag
			}

			if !yes && !dryRun {
				if err := confirmDeletion(target); err != nil {
					return err
				}
			}

			client, err := a.Registry()
			if err != nil {
				return err
			}
			eng, err := a.Engine()
			if err != nil {
				return err
			}

			wf := maintenance.NewWorkflow(client, eng, maintenance.Options{
				DryRun:         dryRun,
				Force:          force,
				DeleteUntagged: a.Config.GC.DeleteUntagged,
				RestartWait:    time.Duration(a.Config.GC.RestartWait) * time.Second,
			})

			var report *maintenance.Report
			runErr := components.RunSpinner(fmt.Sprintf("Deleting %s", target), func() error {
				var wfErr error
				if tag == "" {
					report, wfErr = wf.DeleteRepository(cmd.Context(), repo)
				} else {
					report, wfErr = wf.DeleteTag(cmd.Context(), repo, tag)
				}
				return wfErr
			})

			if report != nil {
				fmt.Println(renderDeleteReport(report))
			}
			return runErr
		},
	}

	deleteCmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	deleteCmd.Flags().BoolVar(&force, "force", false, "delete even when the digest is shared with other tags")
	deleteCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the workflow without changing anything")

	return deleteCmd
}

func confirmDeletion(target string) error {
	confirm := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Delete %s and garbage-collect the registry?", target),
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirm); err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("operation cancelled by user")
	}
	return nil
}

func renderDeleteReport(rep *maintenance.Report) string {
	rows := make([][]string, 0, len(rep.Deletes))
	for _, del := range rep.Deletes {
		dgst := "-"
		if del.Digest != "" {
			dgst = shortDigest(del.Digest)
		}
		outcome := components.OutcomeBadge(string(del.State))
		if del.Fallback && del.State == maintenance.StateDone {
			outcome += " (fallback)"
		}
		rows = append(rows, []string{del.Target(), dgst, outcome})
	}

	summary := fmt.Sprintf("%d deletion(s), %d GC run(s), %d restart(s) in %s",
		len(rep.Deletes), rep.GCRuns, rep.Restarts, rep.Duration().Round(time.Millisecond))
	switch {
	case rep.DryRun:
		summary = styles.RenderInfo("Dry run: " + summary + ", nothing was changed")
	case rep.Failed():
		summary = styles.RenderError(summary)
	default:
		summary = styles.RenderSuccess(summary)
	}
	return components.ReportTable(rows) + "\n" + summary
}

// shortDigest renders a digest in the abbreviated algo:hex12 form used
// across the tool's tables.
func shortDigest(d digest.Digest) string {
	encoded := d.Encoded()
	if len(encoded) > 12 {
		encoded = encoded[:12]
	}
	return d.Algorithm().String() + ":" + encoded
}
