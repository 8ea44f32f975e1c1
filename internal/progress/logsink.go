package progress

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
)

const defaultLogInterval = 2 * time.Second

// logSink writes periodic progress lines through the logger, for output
// that is not a terminal.
type logSink struct {
	label    string
	interval time.Duration
	last     time.Duration
}

// NewLog returns a Sink that logs at most once per interval.
// A zero interval uses two seconds.
func NewLog(label string, interval time.Duration) Sink {
	if interval <= 0 {
		interval = defaultLogInterval
	}
	return &logSink{label: label, interval: interval}
}

func (l *logSink) Update(u Update) {
	if u.Elapsed-l.last < l.interval {
		return
	}
	l.last = u.Elapsed
	logger.Logger().Infof("%s: %s", l.label, FormatLine(u))
}

func (l *logSink) Finish(u Update, err error) {
	if err != nil {
		logger.Logger().Infof("%s: stopped after %s", l.label, FormatLine(u))
		return
	}
	logger.Logger().Infof("%s: done %s", l.label, FormatLine(u))
}

// FormatLine renders "received / total (pct%) rate/s elapsed".
func FormatLine(u Update) string {
	pct := 0.0
	if u.Total > 0 {
		pct = float64(u.Received) / float64(u.Total) * 100
	}
	return fmt.Sprintf("%s / %s (%.1f%%) %s/s %s",
		humanize.IBytes(uint64(u.Received)),
		humanize.IBytes(uint64(max(u.Total, 0))),
		pct,
		humanize.IBytes(uint64(u.Rate())),
		u.Elapsed.Round(time.Second),
	)
}
