package mirrorlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
)

var (
	// ErrMirrorListUnavailable means the mirror-list endpoint could not be
	// reached or answered with a non-success status.
	ErrMirrorListUnavailable = errors.New("mirror list unavailable")
	// ErrNoMirrorsAvailable means the mirror list held no usable mirror.
	ErrNoMirrorsAvailable = errors.New("no mirrors available")
	// ErrParse means the mirror-list body could not be decoded as text.
	ErrParse = errors.New("mirror list is not valid text")
)

// maxLineSize bounds a single mirror-list line.
const maxLineSize = 64 * 1024

// Mirror is one candidate repository base URL. Host is empty when the URL
// does not parse or names no host; such a mirror fails when it is tried.
type Mirror struct {
	BaseURL string
	Host    string
}

func (m Mirror) String() string { return m.BaseURL }

// Label names the mirror in logs and reports.
func (m Mirror) Label() string {
	if m.Host != "" {
		return m.Host
	}
	return m.BaseURL
}

// List is a parsed mirror list. Mirrors keep the server's order; Comments
// holds the '#' metadata lines for diagnostics.
type List struct {
	Mirrors  []Mirror
	Comments []string
}

// Parse reads a newline separated mirror list. Lines starting with '#' are
// comments, lines starting with http:// or https:// are mirrors, anything
// else is ignored. Only trailing whitespace is trimmed, so an indented line
// is neither. Every http(s) line is kept in order, malformed or not. An
// empty result is ErrNoMirrorsAvailable.
func Parse(r io.Reader) (*List, error) {
	log := logger.Logger()

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLineSize)

	list := &List{}
	lineNo := 0
	for s.Scan() {
		lineNo++
		raw := s.Text()
		if !utf8.ValidString(raw) {
			return nil, fmt.Errorf("%w: line %d is not valid UTF-8", ErrParse, lineNo)
		}
		line := strings.TrimRightFunc(raw, unicode.IsSpace)

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			list.Comments = append(list.Comments, strings.TrimSpace(strings.TrimPrefix(line, "#")))
		case strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://"):
			m, err := newMirror(line)
			if err != nil {
				log.Debugf("mirror line %d will fail: %v", lineNo, err)
			}
			list.Mirrors = append(list.Mirrors, m)
		default:
			log.Debugf("ignoring mirror list line %d: %q", lineNo, line)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if len(list.Mirrors) == 0 {
		return list, ErrNoMirrorsAvailable
	}
	return list, nil
}

func newMirror(line string) (Mirror, error) {
	u, err := url.Parse(line)
	if err != nil {
		return Mirror{BaseURL: line}, fmt.Errorf("malformed mirror URL %q: %w", line, err)
	}
	if u.Hostname() == "" {
		return Mirror{BaseURL: line}, fmt.Errorf("mirror URL %q has no host", line)
	}
	return Mirror{BaseURL: line, Host: u.Hostname()}, nil
}
