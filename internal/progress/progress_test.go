package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu       sync.Mutex
	updates  []Update
	finished *Update
	err      error
	block    chan struct{}
}

func (r *recordingSink) Update(u Update) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recordingSink) Finish(u Update, err error) {
	r.mu.Lock()
	r.finished = &u
	r.err = err
	r.mu.Unlock()
}

type panickingSink struct{}

func (panickingSink) Update(Update)        { panic("renderer exploded") }
func (panickingSink) Finish(Update, error) { panic("renderer exploded") }

func TestAsyncDoesNotBlockOnSlowSink(t *testing.T) {
	inner := &recordingSink{block: make(chan struct{})}
	s := Async(inner)

	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 1000; i++ {
			s.Update(Update{Received: i, Total: 1000})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Update blocked on a stalled renderer")
	}

	close(inner.block)
	s.Finish(Update{Received: 1000, Total: 1000}, nil)

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if inner.finished == nil || inner.finished.Received != 1000 {
		t.Fatalf("expected final update to be delivered, got %+v", inner.finished)
	}
	if len(inner.updates) == 0 || len(inner.updates) > 1000 {
		t.Fatalf("unexpected number of delivered updates: %d", len(inner.updates))
	}
	for i := 1; i < len(inner.updates); i++ {
		if inner.updates[i].Received < inner.updates[i-1].Received {
			t.Fatalf("updates delivered out of order at %d", i)
		}
	}
}

func TestAsyncFinishAbandonsHungRenderer(t *testing.T) {
	old := finishGrace
	finishGrace = 50 * time.Millisecond
	t.Cleanup(func() { finishGrace = old })

	inner := &recordingSink{block: make(chan struct{})}
	t.Cleanup(func() { close(inner.block) })
	s := Async(inner)
	s.Update(Update{Label: "stuck.example", Received: 1, Total: 2})

	returned := make(chan struct{})
	go func() {
		s.Finish(Update{Label: "stuck.example", Received: 2, Total: 2}, nil)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("Finish blocked on a hung renderer")
	}
	s.Update(Update{Received: 3})
}

func TestAsyncRecoversPanics(t *testing.T) {
	s := Async(panickingSink{})
	s.Update(Update{Received: 1, Total: 2})
	s.Finish(Update{Received: 2, Total: 2}, nil)
	// A second Finish and a late Update are ignored.
	s.Finish(Update{}, nil)
	s.Update(Update{})
}

func TestAsyncForwardsError(t *testing.T) {
	inner := &recordingSink{}
	s := Async(inner)
	boom := errors.New("boom")
	s.Finish(Update{Received: 3, Total: 10}, boom)
	if !errors.Is(inner.err, boom) {
		t.Fatalf("expected error to be forwarded, got %v", inner.err)
	}
}

func TestUpdateRate(t *testing.T) {
	u := Update{Received: 2048, Elapsed: 2 * time.Second}
	if u.Rate() != 1024 {
		t.Errorf("expected 1024 B/s, got %f", u.Rate())
	}
	if (Update{Received: 10}).Rate() != 0 {
		t.Error("rate with zero elapsed must be 0")
	}
}

func TestFormatLine(t *testing.T) {
	line := FormatLine(Update{Received: 512 * 1024, Total: 1024 * 1024, Elapsed: time.Second})
	for _, want := range []string{"512 KiB", "1.0 MiB", "(50.0%)", "512 KiB/s", "1s"} {
		if !strings.Contains(line, want) {
			t.Errorf("FormatLine() = %q, missing %q", line, want)
		}
	}
}

func TestNewFactoryModes(t *testing.T) {
	var buf bytes.Buffer
	for _, mode := range []string{"", ModeAuto, ModeBar, ModeLog, ModeNone} {
		f, err := NewFactory(&buf, mode)
		if err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		s := f("mirror.example")
		s.Update(Update{Received: 5, Total: 10})
		s.Finish(Update{Received: 10, Total: 10}, nil)
	}
	if _, err := NewFactory(&buf, "fancy"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if IsInteractive(&buf) {
		t.Error("a buffer is never interactive")
	}
}

func TestBarWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	s := NewBar(&buf, "mirror.example")
	s.Update(Update{Received: 50, Total: 100})
	s.Finish(Update{Received: 100, Total: 100}, nil)
	if !strings.Contains(buf.String(), "mirror.example") {
		t.Errorf("expected bar output to mention the label, got %q", buf.String())
	}
}

func TestBarFinishWithoutUpdate(t *testing.T) {
	var buf bytes.Buffer
	s := NewBar(&buf, "mirror.example")
	s.Finish(Update{}, errors.New("unknown content length"))
	if !strings.Contains(buf.String(), "unknown content length") {
		t.Errorf("expected failure to be printed, got %q", buf.String())
	}
}

func TestLogSinkThrottles(t *testing.T) {
	s := NewLog("mirror.example", time.Second).(*logSink)
	s.Update(Update{Received: 1, Total: 10, Elapsed: 500 * time.Millisecond})
	if s.last != 0 {
		t.Fatalf("update inside the interval must not be logged")
	}
	s.Update(Update{Received: 5, Total: 10, Elapsed: 1500 * time.Millisecond})
	if s.last != 1500*time.Millisecond {
		t.Fatalf("update after the interval must be logged, last = %s", s.last)
	}
	s.Finish(Update{Received: 10, Total: 10, Elapsed: 2 * time.Second}, nil)
}
