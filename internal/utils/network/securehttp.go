package network

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
)

// UserAgent is sent with every request issued by rpm-fetch.
const UserAgent = "rpm-fetch/1.0"

// NewSecureHTTPClient returns an http.Client with the project's TLS settings.
// timeout bounds each whole request, body included; zero disables it.
// Compression is disabled so Content-Length describes the bytes on disk.
func NewSecureHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{base: newSecureTransport()},
		Timeout:   timeout,
	}
}

// NewCompressedHTTPClient is like NewSecureHTTPClient but requests gzip and
// decodes it transparently. Use it for small text resources such as mirror
// lists, never for package payloads.
func NewCompressedHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{base: gzhttp.Transport(newSecureTransport())},
		Timeout:   timeout,
	}
}

func newSecureTransport() *http.Transport {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}

	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		ForceAttemptHTTP2:   true,
		DisableCompression:  true,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
	}
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", UserAgent)
	return t.base.RoundTrip(r)
}
