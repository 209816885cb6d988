package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobdeck/internal/display"
	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/model"
)

var searchFlags struct {
	query      string
	location   string
	jobType    string
	salary     string
	experience string
	posted     string
	skills     []string
	company    string
	page       int
}

var searchCmd = &cobra.Command{
	Use:   "search [text...]",
	Short: "Search jobs",
	Long:  "Runs one page of a search and prints the normalized listings together with the shareable query string.",
	RunE:  runSearch,
}

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJob,
}

var similarCmd = &cobra.Command{
	Use:   "similar <id>",
	Short: "List jobs similar to a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchFlags.query, "query", "q", "", "start from a shared query string, e.g. \"q=go&location=Berlin\"")
	f.StringVarP(&searchFlags.location, "location", "l", "", "location")
	f.StringVar(&searchFlags.jobType, "type", "", "job type, e.g. full-time")
	f.StringVar(&searchFlags.salary, "salary", "", "salary band")
	f.StringVar(&searchFlags.experience, "experience", "", "experience level")
	f.StringVar(&searchFlags.posted, "posted", "", "date posted, e.g. week")
	f.StringSliceVarP(&searchFlags.skills, "skill", "s", nil, "required skill (repeatable)")
	f.StringVar(&searchFlags.company, "company", "", "company")
	f.IntVarP(&searchFlags.page, "page", "p", 1, "result page")

	rootCmd.AddCommand(searchCmd, jobCmd, similarCmd)
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// searchState builds the query from --query, the text arguments and the
// filter flags that were set.
func searchState(cmd *cobra.Command, args []string) filter.State {
	base := filter.Parse(searchFlags.query)

	var changes []filter.Change
	if len(args) > 0 {
		changes = append(changes, filter.WithText(strings.Join(args, " ")))
	}
	flags := cmd.Flags()
	set := func(name string, change filter.Change) {
		if flags.Changed(name) {
			changes = append(changes, change)
		}
	}
	set("location", filter.WithLocation(searchFlags.location))
	set("type", filter.WithJobType(searchFlags.jobType))
	set("salary", filter.WithSalaryBand(searchFlags.salary))
	set("experience", filter.WithExperience(searchFlags.experience))
	set("posted", filter.WithDatePosted(searchFlags.posted))
	set("skill", filter.WithSkills(searchFlags.skills...))
	set("company", filter.WithCompany(searchFlags.company))

	s := filter.Apply(base, changes...)
	// The page goes in a separate step: a filter change in the same call
	// would reset it to 1.
	if flags.Changed("page") {
		s = filter.Apply(s, filter.WithPage(searchFlags.page))
	}
	return s
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	st := searchState(cmd, args)
	a.logger.Debug("searching", "query", filter.Serialize(st))

	page, err := a.svc.Search(ctx, st)
	if err != nil {
		return fmt.Errorf("loading jobs: %s: %w", fetch.Reason(err), err)
	}

	w := cmd.OutOrStdout()
	if len(page.Jobs) == 0 {
		fmt.Fprintln(w, "No jobs match these filters.")
	} else {
		printJobs(w, page.Jobs, time.Now())
	}

	fmt.Fprintf(w, "\n%s", display.Count(page.Total, "result"))
	if page.TotalPages > 0 {
		fmt.Fprintf(w, " · page %d of %d", st.Page, page.TotalPages)
	}
	fmt.Fprintln(w)
	if page.Dropped > 0 {
		fmt.Fprintf(w, "%s could not be read\n", display.Count(page.Dropped, "listing"))
	}
	if !st.IsDefault() {
		fmt.Fprintf(w, "query: %s\n", filter.Serialize(st))
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	job, err := a.svc.GetByID(ctx, args[0])
	if err != nil {
		return describe(err)
	}

	w := cmd.OutOrStdout()
	printJobDetail(w, job, time.Now())
	if saved, err := a.svc.IsSaved(job.ID); err == nil && saved {
		fmt.Fprintln(w, "\n★ saved")
	}
	return nil
}

func runSimilar(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	jobs, err := a.svc.GetSimilar(ctx, args[0])
	if err != nil {
		return describe(err)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No similar jobs.")
		return nil
	}
	printJobs(cmd.OutOrStdout(), jobs, time.Now())
	return nil
}

// describe turns an error into the message shown to the user.
func describe(err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return fmt.Errorf("job not found")
	case errors.Is(err, model.ErrSyntheticID):
		return fmt.Errorf("this listing has no server id; it only exists in search results")
	case errors.Is(err, model.ErrActionRejected):
		return fmt.Errorf("the server declined the request: %w", err)
	}
	return fmt.Errorf("%s: %w", fetch.Reason(err), err)
}
