package mirrorlist

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
	"github.com/open-edge-platform/rpm-fetch/internal/utils/network"
)

// URLFunc returns the mirror-list URL for a release and architecture.
type URLFunc func(release, arch string) string

// UnavailableError describes why the mirror-list endpoint failed.
// It matches ErrMirrorListUnavailable with errors.Is.
type UnavailableError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("mirror list unavailable: %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("mirror list unavailable: %s: %v", e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrMirrorListUnavailable }

// Fetcher downloads and parses mirror lists.
type Fetcher struct {
	client *resty.Client
	urlFor URLFunc
}

// NewFetcher returns a Fetcher using hc for requests. A nil hc uses a
// gzip-aware secure client.
func NewFetcher(hc *http.Client, urlFor URLFunc) *Fetcher {
	if hc == nil {
		hc = network.NewCompressedHTTPClient(0)
	}
	client := resty.NewWithClient(hc).
		SetHeader("Accept", "text/plain").
		SetLogger(logger.Logger())
	return &Fetcher{client: client, urlFor: urlFor}
}

// Fetch returns the ordered mirrors for release and arch.
func (f *Fetcher) Fetch(ctx context.Context, release, arch string) ([]Mirror, error) {
	list, err := f.FetchList(ctx, release, arch)
	if err != nil {
		return nil, err
	}
	return list.Mirrors, nil
}

// FetchList is like Fetch but also returns the comment lines. On
// ErrNoMirrorsAvailable the returned list still carries the comments.
func (f *Fetcher) FetchList(ctx context.Context, release, arch string) (*List, error) {
	log := logger.Logger()
	u := f.urlFor(release, arch)

	log.Debugf("fetching mirror list %s", u)
	resp, err := f.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, &UnavailableError{URL: u, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &UnavailableError{
			URL:        u,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected status: %s", resp.Status()),
		}
	}

	list, err := Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return list, fmt.Errorf("parsing mirror list %s: %w", u, err)
	}
	for _, c := range list.Comments {
		log.Debugf("mirror list: %s", c)
	}
	log.Infof("mirror list has %d mirrors", len(list.Mirrors))
	return list, nil
}
