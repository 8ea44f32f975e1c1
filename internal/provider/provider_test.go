package provider_test

import (
	"testing"

	"github.com/open-edge-platform/rpm-fetch/internal/provider"
	_ "github.com/open-edge-platform/rpm-fetch/internal/provider/fedora"
)

type stubProvider struct{}

func (stubProvider) Name() string                      { return "stub" }
func (stubProvider) MirrorListURL(_, _ string) string { return "http://stub/" }

func TestRegisterAndGet(t *testing.T) {
	provider.Register(stubProvider{})

	p, ok := provider.Get("stub")
	if !ok {
		t.Fatal("registered provider not found")
	}
	if p.MirrorListURL("39", "x86_64") != "http://stub/" {
		t.Errorf("unexpected URL from stub provider")
	}
	if _, ok := provider.Get("missing"); ok {
		t.Error("Get should fail for unknown provider")
	}
}

func TestFedoraProviders(t *testing.T) {
	tests := map[string]string{
		"fedora":         "https://mirrors.fedoraproject.org/mirrorlist?arch=x86_64&repo=fedora-39",
		"fedora-updates": "https://mirrors.fedoraproject.org/mirrorlist?arch=x86_64&repo=updates-released-f39",
	}
	for name, want := range tests {
		p, ok := provider.Get(name)
		if !ok {
			t.Fatalf("provider %q not registered", name)
		}
		if got := p.MirrorListURL("39", "x86_64"); got != want {
			t.Errorf("%s: got %q, want %q", name, got, want)
		}
	}

	names := provider.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
}

func TestTemplate(t *testing.T) {
	p := provider.Template("http://mirrors.local/list?repo=fedora-{release}&arch={arch}")
	got := p.MirrorListURL("40", "aarch64")
	if got != "http://mirrors.local/list?repo=fedora-40&arch=aarch64" {
		t.Errorf("unexpected URL %q", got)
	}
	if p.Name() != "custom" {
		t.Errorf("unexpected name %q", p.Name())
	}
}
