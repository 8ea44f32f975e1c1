package fedora

import (
	"fmt"
	"net/url"

	"github.com/open-edge-platform/rpm-fetch/internal/provider"
)

// MirrorListEndpoint is the Fedora mirror manager.
const MirrorListEndpoint = "https://mirrors.fedoraproject.org/mirrorlist"

// Fedora implements provider.Provider for a Fedora repository flavour.
type Fedora struct {
	name string
	repo string // fmt pattern taking the release, e.g. "fedora-%s"
}

func init() {
	provider.Register(&Fedora{name: "fedora", repo: "fedora-%s"})
	provider.Register(&Fedora{name: "fedora-updates", repo: "updates-released-f%s"})
}

// Name returns the unique name of the provider
func (p *Fedora) Name() string { return p.name }

// MirrorListURL returns the mirror manager query for release and arch.
func (p *Fedora) MirrorListURL(release, arch string) string {
	q := url.Values{}
	q.Set("repo", fmt.Sprintf(p.repo, release))
	q.Set("arch", arch)
	return MirrorListEndpoint + "?" + q.Encode()
}
