package provider

import (
	"sort"
	"strings"
	"sync"
)

// Provider knows where a distribution publishes its mirror lists.
type Provider interface {
	// Name is a unique ID, e.g. "fedora" or "fedora-updates".
	Name() string

	// MirrorListURL returns the mirror-list URL for a release and
	// architecture.
	MirrorListURL(release, arch string) string
}

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register makes a Provider available under its Name().
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[p.Name()] = p
}

// Get returns the Provider by name.
func Get(name string) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := providers[name]
	return p, ok
}

// Names lists the registered providers in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Template is a Provider built from a URL template in which "{release}"
// and "{arch}" are substituted.
type Template string

func (t Template) Name() string { return "custom" }

func (t Template) MirrorListURL(release, arch string) string {
	return strings.NewReplacer("{release}", release, "{arch}", arch).Replace(string(t))
}
