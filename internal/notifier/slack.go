package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobdeck/internal/display"
	"github.com/amishk599/jobdeck/internal/fetch"
	"github.com/amishk599/jobdeck/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier sends job alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	pause      time.Duration // between messages
	now        func() time.Time
}

// NewSlackNotifier returns a notifier that posts each job to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		pause:      500 * time.Millisecond,
		now:        time.Now,
	}
}

// Notify posts one Block Kit message per job, pausing between messages.
// Failed messages are logged; the call fails only when none got through.
func (s *SlackNotifier) Notify(search string, jobs []model.Job) error {
	var sent int
	var lastErr error
	for i, j := range jobs {
		if i > 0 && s.pause > 0 {
			time.Sleep(s.pause)
		}
		if err := s.sendMessage(search, j); err != nil {
			s.logger.Error("slack notification failed", "search", search, "job", display.Headline(j), "error", err)
			lastErr = err
			continue
		}
		sent++
	}
	if len(jobs) == 0 {
		return nil
	}
	if sent == 0 {
		return fmt.Errorf("all %d slack notifications failed: %w", len(jobs), lastErr)
	}
	s.logger.Info("slack notifications complete", "search", search, "sent", sent, "failed", len(jobs)-sent)
	return nil
}

// sendMessage posts one job. A 429 is retried once after the delay Slack
// asks for (at least a second).
func (s *SlackNotifier) sendMessage(search string, j model.Job) error {
	body, err := json.Marshal(buildPayload(search, j, s.now()))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err := s.post(body)
		var httpErr *model.HTTPError
		if attempt == 0 && errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
			wait := max(httpErr.RetryAfter, time.Second)
			s.logger.Warn("slack rate limited, retrying", "retry_after", wait.String())
			time.Sleep(wait)
			continue
		}
		if err != nil {
			return err
		}
		s.logger.Info("slack message sent", "job", display.Headline(j), "attempts", attempt+1)
		return nil
	}
}

func (s *SlackNotifier) post(body []byte) error {
	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: fetch.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        errors.New("slack webhook"),
		}
	}
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy job notification to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	now := time.Now()
	testJob := model.Job{
		ID:         "test-001",
		Title:      "Test Notification: Integration Verified",
		Company:    model.Company{Name: "JobDeck"},
		Location:   "Everywhere",
		RemoteKind: model.RemoteKindRemote,
		PostedAt:   &now,
		ApplyURL:   "https://example.com/jobs",
	}
	return n.Notify("test", []model.Job{testJob})
}

func buildPayload(search string, j model.Job, now time.Time) slackPayload {
	postedText := "Just detected"
	if j.PostedAt != nil {
		postedText = display.Posted(j, now)
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🚀 " + j.Company.Name + ": " + j.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Location:*\n" + display.Where(j)},
				{Type: "mrkdwn", Text: "*Salary:*\n" + display.Salary(j.Salary)},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + postedText},
				{Type: "mrkdwn", Text: "*Search:*\n" + search},
			},
		},
	}

	if len(j.Skills) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Skills:* " + strings.Join(j.Skills, ", ")},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "Apply Now"},
					URL:   j.ApplyURL,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
