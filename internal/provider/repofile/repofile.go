// Package repofile turns dnf .repo files into mirror-list providers.
package repofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/open-edge-platform/rpm-fetch/internal/provider"
	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
)

// RepoConfig holds one [section] of a .repo file
type RepoConfig struct {
	Section    string // raw section header, used as the provider name
	Title      string // human-readable name from name=
	MirrorList string
	Metalink   string
	BaseURL    string
	GPGCheck   bool
	Enabled    bool
	GPGKey     string
}

// Parse reads every section of a .repo file. Sections default to enabled,
// as dnf does.
func Parse(r io.Reader) ([]RepoConfig, error) {
	s := bufio.NewScanner(r)
	var (
		repos []RepoConfig
		rc    *RepoConfig
	)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		// skip comments or empty
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		// section header
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			repos = append(repos, RepoConfig{Section: strings.Trim(line, "[]"), Enabled: true})
			rc = &repos[len(repos)-1]
			continue
		}
		if rc == nil {
			continue
		}
		// key=value lines
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "name":
			rc.Title = val
		case "mirrorlist":
			rc.MirrorList = val
		case "metalink":
			rc.Metalink = val
		case "baseurl":
			rc.BaseURL = val
		case "gpgcheck":
			rc.GPGCheck = val == "1"
		case "enabled":
			rc.Enabled = val == "1"
		case "gpgkey":
			rc.GPGKey = val
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading repo file: %w", err)
	}
	return repos, nil
}

// Load parses the .repo file at path.
func Load(path string) ([]RepoConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening repo file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Register adds every enabled section of the .repo file at path that has a
// mirror list or metalink to the provider registry, and returns them.
func Register(path string) ([]RepoConfig, error) {
	log := logger.Logger()
	repos, err := Load(path)
	if err != nil {
		return nil, err
	}
	var registered []RepoConfig
	for _, rc := range repos {
		if !rc.Enabled || (rc.MirrorList == "" && rc.Metalink == "") {
			log.Debugf("repo file %s: skipping section [%s]", path, rc.Section)
			continue
		}
		provider.Register(rc)
		registered = append(registered, rc)
	}
	log.Debugf("repo file %s: registered %d providers", path, len(registered))
	return registered, nil
}

// Name returns the section name
func (rc RepoConfig) Name() string { return rc.Section }

// MirrorListURL expands $releasever and $basearch. A metalink is rewritten
// to the plain mirror-list endpoint of the same mirror manager.
func (rc RepoConfig) MirrorListURL(release, arch string) string {
	u := rc.MirrorList
	if u == "" {
		u = strings.Replace(rc.Metalink, "/metalink", "/mirrorlist", 1)
	}
	return expand(u, release, arch)
}

// GPGKeyPath returns the first file:// key for release and arch, or "".
func (rc RepoConfig) GPGKeyPath(release, arch string) string {
	for _, key := range strings.FieldsFunc(rc.GPGKey, func(r rune) bool { return r == ' ' || r == ',' }) {
		if path, ok := strings.CutPrefix(key, "file://"); ok {
			return expand(path, release, arch)
		}
	}
	return ""
}

func expand(s, release, arch string) string {
	return strings.NewReplacer("$releasever", release, "$basearch", arch).Replace(s)
}
