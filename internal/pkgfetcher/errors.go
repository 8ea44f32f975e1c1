package pkgfetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/open-edge-platform/rpm-fetch/internal/mirrorlist"
	"github.com/open-edge-platform/rpm-fetch/internal/ospackage/rpmutils"
)

// ErrUnknownContentLength is returned when a mirror does not declare the
// package size. No byte is read or written in that case.
var ErrUnknownContentLength = errors.New("response has no content length")

var errNoHost = errors.New("URL has no host")

// TransportError means the request could not be sent, the transport failed
// before a response arrived, or the mirror answered with a non-2xx status.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is the cause of a TransportError for non-2xx answers.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// StreamInterruptedError means the body stopped before all declared bytes
// were received and written.
type StreamInterruptedError struct {
	Received int64
	Total    int64
	Err      error
}

func (e *StreamInterruptedError) Error() string {
	return fmt.Sprintf("stream interrupted after %d of %d bytes: %v", e.Received, e.Total, e.Err)
}

func (e *StreamInterruptedError) Unwrap() error { return e.Err }

// MirrorFailure records why one mirror failed.
type MirrorFailure struct {
	Mirror mirrorlist.Mirror
	Reason error
}

// AllMirrorsExhaustedError is returned when every mirror tried has failed.
// Failures are in attempt order.
type AllMirrorsExhaustedError struct {
	Failures []MirrorFailure
}

func (e *AllMirrorsExhaustedError) Error() string {
	return fmt.Sprintf("all %d mirrors exhausted (%s)", len(e.Failures), e.Summary())
}

// Summary counts failures per kind, e.g. "2 transport, 1 stream-interrupted".
func (e *AllMirrorsExhaustedError) Summary() string {
	counts := make(map[string]int)
	for _, f := range e.Failures {
		counts[Kind(f.Reason)]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%d %s", counts[k], k)
	}
	return strings.Join(parts, ", ")
}

// Kind classifies an attempt error for reports.
func Kind(err error) string {
	var (
		transport *TransportError
		stream    *StreamInterruptedError
	)
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnknownContentLength):
		return "unknown-content-length"
	case errors.Is(err, rpmutils.ErrVerification):
		return "verification"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &stream):
		return "stream-interrupted"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}
