package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobdeck/internal/browse"
	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/service"
)

var browseQuery string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Interactive job browser",
	Long:  "Opens a terminal UI with live search, filters, job details and the insights panels.",
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseQuery, "query", "q", "", "start from a shared query string")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	// Any log line written while the alt screen is up corrupts the display.
	a, err := newAppWithLogger(true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	return browse.Run(ctx, a.svc, browse.Options{
		Initial:  filter.Parse(browseQuery),
		Debounce: a.cfg.Search.Debounce,
		Insights: service.InsightsQuery{
			UserID:   a.cfg.Insights.UserID,
			Limit:    a.cfg.Insights.Limit,
			Position: a.cfg.Insights.Position,
		},
		Logger: a.logger,
	})
}
