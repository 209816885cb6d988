package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobdeck/internal/display"
	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/model"
	"github.com/amishk599/jobdeck/internal/retry"
	"github.com/amishk599/jobdeck/internal/service"
)

var insightsFlags struct {
	user        string
	limit       int
	position    string
	retryFailed bool
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show recommendations, skills demand and salary insights",
	Long: `Fetches the insight sources in parallel and prints one panel per source.
A source that fails does not hide the others. With --retry-failed each
failed source is fetched once more on its own.`,
	RunE: runInsights,
}

func init() {
	f := insightsCmd.Flags()
	f.StringVar(&insightsFlags.user, "user", "", "user id for recommendations (default from config)")
	f.IntVar(&insightsFlags.limit, "limit", 0, "number of recommendations and skills (default from config)")
	f.StringVar(&insightsFlags.position, "position", "", "position for salary insights (default from config)")
	f.BoolVar(&insightsFlags.retryFailed, "retry-failed", false, "retry each failed source once")
	rootCmd.AddCommand(insightsCmd)
}

func runInsights(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	q := service.InsightsQuery{
		UserID:   a.cfg.Insights.UserID,
		Limit:    a.cfg.Insights.Limit,
		Position: a.cfg.Insights.Position,
	}
	if insightsFlags.user != "" {
		q.UserID = insightsFlags.user
	}
	if insightsFlags.limit > 0 {
		q.Limit = insightsFlags.limit
	}
	if insightsFlags.position != "" {
		q.Position = insightsFlags.position
	}

	ctrl := retry.NewController("insights", model.InsightSources,
		func(ctx context.Context, names []string) (fetch.Result, error) {
			return a.svc.LoadInsights(ctx, q, names)
		},
		retry.WithLogger(a.logger),
	)

	view, err := ctrl.Load(ctx)
	if err != nil {
		return err
	}
	if insightsFlags.retryFailed {
		for _, p := range view.Panels {
			if p.State != retry.PanelFailed || !p.Retryable {
				continue
			}
			if view, err = ctrl.Retry(ctx, p.Name); err != nil {
				return err
			}
		}
	}

	printInsights(cmd.OutOrStdout(), view, time.Now())
	if view.Status == retry.TotalError {
		return errors.New(view.Message)
	}
	return nil
}

var panelTitles = map[string]string{
	model.SourceRecommendations: "Recommended for you",
	model.SourceSkillsDemand:    "Skills in demand",
	model.SourceSalaryInsights:  "Salary insights",
}

func printInsights(w io.Writer, view retry.View, now time.Time) {
	for i, p := range view.Panels {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s ==\n", panelTitles[p.Name])
		switch p.State {
		case retry.PanelFailed:
			fmt.Fprintf(w, "  %s: %s\n", p.Notice, p.Reason)
		case retry.PanelEmpty:
			fmt.Fprintf(w, "  %s\n", p.Notice)
		case retry.PanelReady:
			switch data := p.Data.(type) {
			case []model.Job:
				for _, j := range data {
					fmt.Fprintf(w, "  %s · %s · %s\n", display.Headline(j), display.Where(j), display.Posted(j, now))
				}
			case []model.SkillDemand:
				printSkills(w, data)
			case *model.SalaryInsights:
				printSalaryInsights(w, data)
			}
		}
	}
}
