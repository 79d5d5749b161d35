package audit

import (
	"context"
	"time"
)

// writeTimeout bounds a single audit insert.
const writeTimeout = 5 * time.Second

// Logger is the subset of logging.Logger the recorder needs.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Recorder writes auth events to a Repository. A failed write is logged
// and never reaches the auth operation that caused it.
type Recorder struct {
	repo   Repository
	site   string
	logger Logger
	now    func() time.Time
}

// NewRecorder returns a Recorder tagging entries with site.
func NewRecorder(repo Repository, site string) *Recorder {
	return &Recorder{repo: repo, site: site, logger: noopLogger{}, now: time.Now}
}

// SetLogger sets the logger for write failures.
func (r *Recorder) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// WriteAuthEvent stores one entry for action and outcome.
func (r *Recorder) WriteAuthEvent(action, outcome string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	e := &Entry{
		Action:    action,
		Outcome:   outcome,
		Site:      r.site,
		CreatedAt: r.now().UTC(),
	}
	if err := r.repo.Create(ctx, e); err != nil {
		r.logger.Error("writing audit entry", "action", action, "outcome", outcome, "error", err)
	}
}
