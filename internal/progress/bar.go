package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Modes accepted by NewFactory.
const (
	ModeAuto = "auto"
	ModeBar  = "bar"
	ModeLog  = "log"
	ModeNone = "none"
)

// barSink renders a terminal progress bar. The bar is created on the first
// update, once the total size is known.
type barSink struct {
	w     io.Writer
	label string
	bar   *progressbar.ProgressBar
}

// NewBar returns a Sink drawing a byte progress bar on w.
func NewBar(w io.Writer, label string) Sink {
	return &barSink{w: w, label: label}
}

func (b *barSink) newBar(total int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription(b.label),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(b.w)
		}),
	)
}

func (b *barSink) Update(u Update) {
	if b.bar == nil {
		b.bar = b.newBar(u.Total)
	}
	_ = b.bar.Set64(u.Received)
}

func (b *barSink) Finish(u Update, err error) {
	if b.bar == nil {
		if err != nil {
			fmt.Fprintf(b.w, "%s: %v\n", b.label, err)
		}
		return
	}
	if err != nil {
		_ = b.bar.Exit()
		fmt.Fprintln(b.w)
		return
	}
	_ = b.bar.Set64(u.Received)
	_ = b.bar.Finish()
}

// IsInteractive reports whether w is a terminal.
func IsInteractive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewFactory returns a Factory for mode. ModeAuto draws bars on terminals
// and falls back to log lines otherwise. Every sink it creates is wrapped
// with Async.
func NewFactory(w io.Writer, mode string) (Factory, error) {
	switch mode {
	case "", ModeAuto:
		if IsInteractive(w) {
			mode = ModeBar
		} else {
			mode = ModeLog
		}
	case ModeBar, ModeLog, ModeNone:
	default:
		return nil, fmt.Errorf("invalid progress mode %q (expected auto|bar|log|none)", mode)
	}

	switch mode {
	case ModeBar:
		return func(label string) Sink {
			return Async(NewBar(w, label))
		}, nil
	case ModeLog:
		return func(label string) Sink {
			return Async(NewLog(label, 0))
		}, nil
	default:
		return NopFactory, nil
	}
}
