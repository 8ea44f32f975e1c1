package mirrorlist

import (
	"errors"
	"strings"
	"testing"
)

func baseURLs(ms []Mirror) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.BaseURL
	}
	return out
}

func TestParseMixedLines(t *testing.T) {
	list, err := Parse(strings.NewReader("#comment\n\nhttp://a/\nhttp://b/\nftp://c/"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := baseURLs(list.Mirrors)
	want := []string{"http://a/", "http://b/"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(list.Comments) != 1 || list.Comments[0] != "comment" {
		t.Errorf("expected one comment, got %v", list.Comments)
	}
	if list.Mirrors[0].Host != "a" {
		t.Errorf("expected host a, got %q", list.Mirrors[0].Host)
	}
}

func TestParsePreservesOrderAndTrimsCRLF(t *testing.T) {
	body := "# repo = fedora-39 arch = x86_64 country = DE\r\n" +
		"https://z.example/fedora/\r\n" +
		"http://a.example:8080/pub/fedora/\r\n" +
		"rsync://r.example/fedora/\r\n" +
		"https://m.example/fedora/\r\n"

	list, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"https://z.example/fedora/", "http://a.example:8080/pub/fedora/", "https://m.example/fedora/"}
	got := baseURLs(list.Mirrors)
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if list.Mirrors[1].Host != "a.example" {
		t.Errorf("expected host without port, got %q", list.Mirrors[1].Host)
	}
}

func TestParseCommentIsNeverAMirror(t *testing.T) {
	list, err := Parse(strings.NewReader("#http://commented.example/\nhttp://real.example/\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(list.Mirrors) != 1 || list.Mirrors[0].Host != "real.example" {
		t.Fatalf("unexpected mirrors %v", list.Mirrors)
	}
}

func TestParseNoMirrors(t *testing.T) {
	for _, body := range []string{"", "# only a comment\n", "ftp://c/\nrsync://d/\nnot a url\n"} {
		list, err := Parse(strings.NewReader(body))
		if !errors.Is(err, ErrNoMirrorsAvailable) {
			t.Errorf("body %q: expected ErrNoMirrorsAvailable, got %v", body, err)
		}
		if list == nil || len(list.Mirrors) != 0 {
			t.Errorf("body %q: expected empty list, got %+v", body, list)
		}
	}
}

func TestParseKeepsMalformedMirrorsInOrder(t *testing.T) {
	list, err := Parse(strings.NewReader("http://a/\nhttp://\nhttps://[bad\nhttp://b/\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Mirror{
		{BaseURL: "http://a/", Host: "a"},
		{BaseURL: "http://"},
		{BaseURL: "https://[bad"},
		{BaseURL: "http://b/", Host: "b"},
	}
	if len(list.Mirrors) != len(want) {
		t.Fatalf("expected %d mirrors, got %v", len(want), list.Mirrors)
	}
	for i, m := range list.Mirrors {
		if m != want[i] {
			t.Errorf("mirror %d: got %+v, want %+v", i, m, want[i])
		}
	}
	if got := list.Mirrors[1].Label(); got != "http://" {
		t.Errorf("hostless mirror should be labelled by its URL, got %q", got)
	}
	if got := list.Mirrors[0].Label(); got != "a" {
		t.Errorf("expected host label, got %q", got)
	}
}

func TestParseIndentedLinesAreIgnored(t *testing.T) {
	list, err := Parse(strings.NewReader("  http://indented.example/\n\t# indented comment\nhttp://ok.example/  \n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := baseURLs(list.Mirrors); len(got) != 1 || got[0] != "http://ok.example/" {
		t.Fatalf("expected only the unindented mirror, got %v", got)
	}
	if len(list.Comments) != 0 {
		t.Errorf("indented comment must not be recorded, got %v", list.Comments)
	}

	_, err = Parse(strings.NewReader(" http://only-indented.example/\n"))
	if !errors.Is(err, ErrNoMirrorsAvailable) {
		t.Errorf("expected ErrNoMirrorsAvailable, got %v", err)
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	_, err := Parse(strings.NewReader("http://a/\n\xff\xfe\n"))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}
