package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobdeck/internal/filter"
)

var searchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "List the watched searches",
	Long:  "Reads the config and prints a table of the searches under watch.searches.",
	RunE:  runSearches,
}

func init() {
	rootCmd.AddCommand(searchesCmd)
}

func runSearches(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-20s %s\n", "Search", "Query")
	fmt.Fprintln(w, strings.Repeat("─", 60))

	for _, s := range cfg.Watch.Searches {
		// Show the normalized form the watcher actually runs.
		fmt.Fprintf(w, "%-20s %s\n", s.Name, filter.Serialize(filter.Parse(s.Query)))
	}

	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%d searches · every %s · notify via %s\n",
		len(cfg.Watch.Searches), cfg.Watch.Interval, cfg.Watch.Notification.Type)
	return nil
}
