package notifier

import (
	"log/slog"
	"time"

	"github.com/amishk599/jobdeck/internal/display"
	"github.com/amishk599/jobdeck/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new job matches to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewLogNotifier returns a notifier that logs each job via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger, now: time.Now}
}

// Notify logs each job with its headline, location, salary, apply link and age.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(search string, jobs []model.Job) error {
	now := n.now()
	for _, j := range jobs {
		n.logger.Info("new job",
			"search", search,
			"job", display.Headline(j),
			"where", display.Where(j),
			"salary", display.Salary(j.Salary),
			"posted", display.Posted(j, now),
			"apply", j.ApplyURL,
		)
	}
	return nil
}
