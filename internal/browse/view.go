package browse

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/amishk599/jobdeck/internal/display"
	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/filter"
	"github.com/amishk599/jobdeck/internal/model"
	"github.com/amishk599/jobdeck/internal/retry"
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	jobTitleStyle = lipgloss.NewStyle().
			Bold(true)

	jobSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(12)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))
)

// Input line, suggestion line, pane header, two border rows and the status bar.
const chromeHeight = 6

func (m *Model) recalcLayout() {
	listWidth := max(m.width-4, 20)
	if m.showAI {
		listWidth = max((m.width-5)*3/5, 20)
	}
	listHeight := max(m.height-chromeHeight, 5)

	if !m.ready {
		m.list = viewport.New(listWidth, listHeight)
		m.ready = true
	} else {
		m.list.Width = listWidth
		m.list.Height = listHeight
	}
	m.recalcContent()
}

func (m *Model) recalcContent() {
	m.list.SetContent(m.renderList())
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.spin.View() + " Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m Model) viewList() string {
	inputs := m.text.View() + "   " + m.location.View()

	var sugg string
	if m.focus == focusText && len(m.suggestions) > 0 {
		values := make([]string, 0, len(m.suggestions))
		for _, s := range m.suggestions {
			values = append(values, s.Value)
		}
		sugg = suggestionStyle.Render("  ↳ " + strings.Join(values, " · ") + "   (tab to accept)")
	}

	listPane := activeBorderStyle.Width(m.list.Width).Render(m.list.View())
	header := lipgloss.NewStyle().Width(m.list.Width + 2).Render(headerStyle.Render(m.listHeader()))
	body := listPane

	if m.showAI {
		aiWidth := max(m.width-m.list.Width-5, 20)
		aiPane := inactiveBorderStyle.
			Width(aiWidth).
			Height(m.list.Height).
			Render(truncateLines(m.renderInsights(aiWidth), m.list.Height))
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, " ", headerStyle.Render("Insights"))
		body = lipgloss.JoinHorizontal(lipgloss.Top, listPane, " ", aiPane)
	}

	status := m.status
	if status == "" {
		status = "/ search  l location  ↑/↓ move  n/p page  enter detail  s save  a apply  r retry  R/1-3 retry insights  i insights  c clear  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(status)

	return inputs + "\n" + sugg + "\n" + header + "\n" + body + "\n" + statusBar
}

func (m Model) listHeader() string {
	snap := m.machine.Snapshot()
	switch {
	case snap.Phase == filter.PhaseFetching:
		return m.spin.View() + " Loading jobs"
	case snap.Page == nil:
		return "Jobs"
	}
	page := snap.Page
	h := fmt.Sprintf("Jobs: %s", display.Count(page.Total, "result"))
	if page.TotalPages > 1 {
		h += fmt.Sprintf(" · page %d of %d", snap.State.Page, page.TotalPages)
	}
	return h
}

func (m Model) renderList() string {
	snap := m.machine.Snapshot()
	switch snap.Phase {
	case filter.PhaseIdle:
		return ""
	case filter.PhaseFailed:
		var b strings.Builder
		b.WriteString(errorStyle.Render("Error loading jobs") + "\n\n")
		b.WriteString("  " + retry.FailureNotice(model.SourceJobs) + ": " + fetch.Reason(snap.Err) + "\n")
		if retry.IsRetryable(snap.Err) {
			b.WriteString("\n" + hintStyle.Render("  press r to retry"))
		}
		return b.String()
	}
	if snap.Page == nil {
		return ""
	}
	if len(snap.Page.Jobs) == 0 && snap.Phase != filter.PhaseFetching {
		return hintStyle.Render("  No jobs match these filters")
	}

	out := renderJobs(snap.Page.Jobs, m.cursor, m.now())
	if snap.Phase == filter.PhasePartialSuccess {
		out += "\n\n" + hintStyle.Render(fmt.Sprintf("  %s could not be read", display.Count(snap.Page.Dropped, "listing")))
	}
	return out
}

func renderJobs(jobs []model.Job, cursor int, now time.Time) string {
	var b strings.Builder
	for i, j := range jobs {
		titleSt := jobTitleStyle
		subtitleSt := jobSubtitleStyle
		prefix := "  "
		if i == cursor {
			titleSt = selectedJobTitleStyle
			subtitleSt = selectedJobSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(display.Headline(j)))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(strings.Join([]string{
			display.Where(j), display.Salary(j.Salary), display.Posted(j, now),
		}, " · ")))
		b.WriteByte('\n')

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m Model) renderInsights(width int) string {
	v := m.insights.View()
	var b strings.Builder

	if v.Status == retry.TotalError {
		b.WriteString(errorStyle.Render(v.Message) + "\n")
		b.WriteString(hintStyle.Render("press R to retry") + "\n\n")
	}

	for i, p := range v.Panels {
		b.WriteString(dividerStyle.Render(fmt.Sprintf("── %d %s ", i+1, panelTitle(p.Name))) + "\n")
		switch p.State {
		case retry.PanelLoading:
			b.WriteString(m.spin.View() + " loading\n")
		case retry.PanelEmpty:
			b.WriteString(hintStyle.Render(p.Notice) + "\n")
		case retry.PanelFailed:
			b.WriteString(errorStyle.Render(p.Notice) + "\n")
			b.WriteString("  " + p.Reason + "\n")
			if p.Retryable && v.Status != retry.TotalError {
				b.WriteString(hintStyle.Render(fmt.Sprintf("  press %d to retry", i+1)) + "\n")
			}
		case retry.PanelReady:
			b.WriteString(renderInsightData(p.Data, width))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func panelTitle(name string) string {
	switch name {
	case model.SourceRecommendations:
		return "Recommended"
	case model.SourceSkillsDemand:
		return "Skills in demand"
	case model.SourceSalaryInsights:
		return "Salary"
	}
	return name
}

func renderInsightData(data any, width int) string {
	var b strings.Builder
	switch d := data.(type) {
	case []model.Job:
		for _, j := range d[:min(len(d), 5)] {
			b.WriteString("  " + truncate(display.Headline(j), width-2) + "\n")
		}
	case []model.SkillDemand:
		for _, s := range d[:min(len(d), 8)] {
			line := fmt.Sprintf("  %-16s %s", s.Skill, humanize.Comma(int64(s.Demand)))
			if s.Growth != nil {
				line += fmt.Sprintf("  %+.0f%%", *s.Growth)
			}
			b.WriteString(line + "\n")
		}
	case *model.SalaryInsights:
		b.WriteString(salaryLines(d))
	}
	return b.String()
}

func salaryLines(s *model.SalaryInsights) string {
	var b strings.Builder
	if s.Position != "" {
		b.WriteString("  " + s.Position + "\n")
	}
	b.WriteString("  range   " + display.Salary(&model.Salary{Min: s.Min, Max: s.Max, Currency: s.Currency}) + "\n")
	if s.Median != nil {
		b.WriteString("  median  " + display.Salary(&model.Salary{Min: s.Median, Max: s.Median, Currency: s.Currency}) + "\n")
	}
	if s.Average != nil {
		b.WriteString("  average " + display.Salary(&model.Salary{Min: s.Average, Max: s.Average, Currency: s.Currency}) + "\n")
	}
	if s.SampleSize > 0 {
		b.WriteString("  from " + display.Count(s.SampleSize, "posting") + "\n")
	}
	return b.String()
}

func (m Model) viewDetail() string {
	title := detailTitleStyle.Render(display.Headline(m.detailJob))
	if m.detailLoading {
		title += "  " + m.spin.View()
	}

	content := activeBorderStyle.Width(m.width - 2).Render(m.detail.View())

	status := m.status
	if status == "" {
		status = "o open apply link  s save  a apply  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(status)

	return title + "\n" + content + "\n" + statusBar
}

func (m Model) renderDetail() string {
	j := m.detailJob
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Title", j.Title)
	addField("Company", j.Company.Name)
	addField("Website", j.Company.Website)
	addField("Location", display.Where(j))
	addField("Type", j.JobType)
	addField("Salary", display.Salary(j.Salary))
	addField("Posted", display.Posted(j, m.now()))
	if len(j.Skills) > 0 {
		addField("Skills", strings.Join(j.Skills, ", "))
	}
	b.WriteByte('\n')
	addField("Apply", j.ApplyURL)
	if j.HasSyntheticID {
		b.WriteString(hintStyle.Render("  this listing has no server id; save and apply are unavailable") + "\n")
	}

	if m.detailErr != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+m.detailErr) + "\n")
	}

	if j.Description != "" {
		wrapWidth := max(m.width-8, 20)
		fill := strings.Repeat("─", max(wrapWidth-len("── Description "), 3))
		b.WriteString("\n" + dividerStyle.Render("── Description "+fill) + "\n\n")
		b.WriteString(wordWrap(j.Description, wrapWidth) + "\n")
	}

	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

func truncateLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
