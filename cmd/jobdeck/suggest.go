package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <term>",
	Short: "Suggest search terms for a partial input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		items, _, err := a.svc.Suggest(ctx, args[0])
		if err != nil {
			return describe(err)
		}
		w := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(w, "No suggestions.")
			return nil
		}
		for _, s := range items {
			fmt.Fprintf(w, "%-30s %-8s %s\n", s.Value, s.Kind, humanize.Comma(int64(s.Popularity)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}
