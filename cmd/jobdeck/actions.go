package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobdeck/internal/display"
	"github.com/amishk599/jobdeck/internal/model"
)

var applyCmd = &cobra.Command{
	Use:   "apply <id>",
	Short: "Apply to a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args[0], "Applied to", func(a *app, job model.Job) error {
			ctx, stop := signalContext()
			defer stop()
			return a.svc.Apply(ctx, job)
		})
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <id>",
	Short: "Save a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args[0], "Saved", func(a *app, job model.Job) error {
			ctx, stop := signalContext()
			defer stop()
			return a.svc.Save(ctx, job)
		})
	},
}

var unsaveCmd = &cobra.Command{
	Use:   "unsave <id>",
	Short: "Remove a saved job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		if err := a.svc.Unsave(ctx, model.Job{ID: args[0]}); err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from saved jobs\n", args[0])
		return nil
	},
}

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		jobs, err := a.svc.Saved()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(jobs) == 0 {
			fmt.Fprintln(w, "No saved jobs.")
			return nil
		}
		fmt.Fprintf(w, "%s\n\n", display.Count(len(jobs), "saved job"))
		for _, j := range jobs {
			line := fmt.Sprintf("%-12s %s at %s · saved %s", j.ID, j.Title, j.Company, humanize.Time(j.SavedAt))
			if j.AppliedAt != nil {
				line += " · applied " + humanize.Time(*j.AppliedAt)
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd, saveCmd, unsaveCmd, savedCmd)
}

// runAction loads the job so the local record carries its title and
// company, then performs the action.
func runAction(cmd *cobra.Command, id, verb string, do func(*app, model.Job) error) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	job, err := a.svc.GetByID(ctx, id)
	stop()
	if err != nil {
		return describe(err)
	}
	if err := do(a, job); err != nil {
		return describe(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, display.Headline(job))
	if verb == "Applied to" && job.ApplyURL != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Finish the application at %s\n", job.ApplyURL)
	}
	return nil
}
