package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/amishk599/jobdeck/internal/display"
	"github.com/amishk599/jobdeck/internal/model"
)

func printJob(w io.Writer, j model.Job, now time.Time) {
	id := j.ID
	if j.HasSyntheticID {
		id += " (local)"
	}
	fmt.Fprintf(w, "%s\n", display.Headline(j))
	fmt.Fprintf(w, "  %s · %s · %s\n", display.Where(j), display.Salary(j.Salary), display.Posted(j, now))
	if len(j.Skills) > 0 {
		fmt.Fprintf(w, "  skills: %s\n", strings.Join(j.Skills, ", "))
	}
	fmt.Fprintf(w, "  id: %s\n", id)
	if j.ApplyURL != "" {
		fmt.Fprintf(w, "  apply: %s\n", j.ApplyURL)
	}
}

func printJobs(w io.Writer, jobs []model.Job, now time.Time) {
	for i, j := range jobs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printJob(w, j, now)
	}
}

func printJobDetail(w io.Writer, j model.Job, now time.Time) {
	printJob(w, j, now)
	if j.JobType != "" {
		fmt.Fprintf(w, "  type: %s\n", j.JobType)
	}
	if j.Company.Website != "" {
		fmt.Fprintf(w, "  website: %s\n", j.Company.Website)
	}
	if j.Description != "" {
		fmt.Fprintf(w, "\n%s\n", j.Description)
	}
}

func printSkills(w io.Writer, skills []model.SkillDemand) {
	for _, s := range skills {
		line := fmt.Sprintf("  %-20s %8s", s.Skill, humanize.Comma(int64(s.Demand)))
		if s.Growth != nil {
			line += fmt.Sprintf("  %+.1f%%", *s.Growth)
		}
		fmt.Fprintln(w, line)
	}
}

func printSalaryInsights(w io.Writer, s *model.SalaryInsights) {
	figure := func(v *float64) string {
		return display.Salary(&model.Salary{Min: v, Max: v, Currency: s.Currency})
	}
	if s.Position != "" {
		fmt.Fprintf(w, "  position: %s\n", s.Position)
	}
	fmt.Fprintf(w, "  range:    %s\n", display.Salary(&model.Salary{Min: s.Min, Max: s.Max, Currency: s.Currency}))
	if s.Median != nil {
		fmt.Fprintf(w, "  median:   %s\n", figure(s.Median))
	}
	if s.Average != nil {
		fmt.Fprintf(w, "  average:  %s\n", figure(s.Average))
	}
	if s.SampleSize > 0 {
		fmt.Fprintf(w, "  sample:   %s\n", display.Count(s.SampleSize, "posting"))
	}
}
