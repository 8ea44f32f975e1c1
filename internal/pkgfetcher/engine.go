package pkgfetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/open-edge-platform/rpm-fetch/internal/mirrorlist"
	"github.com/open-edge-platform/rpm-fetch/internal/progress"
)

// chunkSize is the read buffer used while streaming a package.
const chunkSize = 32 * 1024

// Doer is the part of *http.Client the engine needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Status is the lifecycle state of an Attempt.
type Status int

const (
	Pending Status = iota
	InProgress
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in-progress"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt is the outcome of downloading the package from one mirror.
type Attempt struct {
	Mirror        mirrorlist.Mirror
	URL           string
	Status        Status
	Reason        error
	BytesExpected int64 // -1 until the response declares a size
	BytesReceived int64 // never exceeds BytesExpected
	Elapsed       time.Duration
}

// Download fetches url from mirror and writes the body to dst in the order
// received. It succeeds only when every declared byte has been written.
// Progress goes to sink after each chunk; sink.Finish is always called.
// The returned Attempt is final: its Status is Succeeded or Failed.
func Download(ctx context.Context, client Doer, mirror mirrorlist.Mirror, url string, sink progress.Sink, dst io.Writer) (Attempt, error) {
	if sink == nil {
		sink = progress.Nop{}
	}
	a := Attempt{Mirror: mirror, URL: url, Status: InProgress, BytesExpected: -1}
	start := time.Now()

	snapshot := func() progress.Update {
		return progress.Update{
			Label:    mirror.Label(),
			Received: a.BytesReceived,
			Total:    max(a.BytesExpected, 0),
			Elapsed:  time.Since(start),
		}
	}
	finish := func(err error) (Attempt, error) {
		a.Elapsed = time.Since(start)
		if err != nil {
			a.Status, a.Reason = Failed, err
		} else {
			a.Status = Succeeded
		}
		sink.Finish(snapshot(), err)
		return a, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return finish(&TransportError{URL: url, Err: err})
	}
	if req.URL.Hostname() == "" {
		return finish(&TransportError{URL: url, Err: errNoHost})
	}
	resp, err := client.Do(req)
	if err != nil {
		return finish(&TransportError{URL: url, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return finish(&TransportError{URL: url, Err: &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}})
	}
	if resp.ContentLength < 0 {
		return finish(ErrUnknownContentLength)
	}
	total := resp.ContentLength
	a.BytesExpected = total

	var written int64
	buf := make([]byte, chunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return finish(&StreamInterruptedError{Received: a.BytesReceived, Total: total, Err: werr})
			}
			written += int64(n)
			a.BytesReceived = min(a.BytesReceived+int64(n), total)
			sink.Update(snapshot())
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				rerr = ctxErr
			}
			return finish(&StreamInterruptedError{Received: a.BytesReceived, Total: total, Err: rerr})
		}
	}

	if written < total {
		return finish(&StreamInterruptedError{Received: a.BytesReceived, Total: total, Err: io.ErrUnexpectedEOF})
	}
	return finish(nil)
}
