package progress

import (
	"sync"
	"time"

	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
)

// Update is a snapshot of one attempt's transfer.
type Update struct {
	Label    string // usually the mirror host
	Received int64
	Total    int64
	Elapsed  time.Duration
}

// Rate returns the average transfer rate in bytes per second.
func (u Update) Rate() float64 {
	if u.Elapsed <= 0 {
		return 0
	}
	return float64(u.Received) / u.Elapsed.Seconds()
}

// Sink consumes progress for a single attempt. Update is called after every
// chunk; Finish is called once when the attempt ends, successfully or not.
type Sink interface {
	Update(u Update)
	Finish(u Update, err error)
}

// Factory creates a fresh Sink per attempt. The total is not known until
// the first Update arrives.
type Factory func(label string) Sink

// Nop discards all progress.
type Nop struct{}

func (Nop) Update(Update)        {}
func (Nop) Finish(Update, error) {}

// NopFactory returns Nop sinks.
func NopFactory(string) Sink { return Nop{} }

// asyncSink forwards to an inner sink from its own goroutine so a slow or
// failing renderer never blocks the download loop.
type asyncSink struct {
	inner Sink

	mu       sync.Mutex
	pending  *Update
	closed   bool
	final    Update
	finalErr error
	wake     chan struct{}
	done     chan struct{}
}

// finishGrace bounds how long Finish waits for a stuck renderer.
var finishGrace = 2 * time.Second

// Async wraps s so that Update never blocks. Only the latest pending update
// is kept; older undelivered ones are dropped. Panics in s are recovered
// and logged.
func Async(s Sink) Sink {
	a := &asyncSink{
		inner: s,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *asyncSink) Update(u Update) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.pending = &u
	select {
	case a.wake <- struct{}{}:
	default:
	}
	a.mu.Unlock()
}

// Finish flushes the last update, forwards Finish and waits up to
// finishGrace for the renderer to return. A renderer still running after
// that is abandoned.
func (a *asyncSink) Finish(u Update, err error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.final, a.finalErr = u, err
	close(a.wake)
	a.mu.Unlock()

	timer := time.NewTimer(finishGrace)
	defer timer.Stop()
	select {
	case <-a.done:
	case <-timer.C:
		logger.Logger().Warnf("progress renderer for %s did not finish within %s, abandoning it", u.Label, finishGrace)
	}
}

func (a *asyncSink) loop() {
	defer close(a.done)
	for range a.wake {
		a.mu.Lock()
		u := a.pending
		a.pending = nil
		a.mu.Unlock()
		if u != nil {
			a.safe(func() { a.inner.Update(*u) })
		}
	}
	a.safe(func() { a.inner.Finish(a.final, a.finalErr) })
}

func (a *asyncSink) safe(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger().Warnf("progress renderer failed: %v", r)
		}
	}()
	fn()
}
