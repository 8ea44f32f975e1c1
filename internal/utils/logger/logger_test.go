package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerBeforeInitIsNop(t *testing.T) {
	prev := global
	global = nil
	t.Cleanup(func() { global = prev })

	if Logger() == nil {
		t.Fatal("expected a non-nil no-op logger before Init")
	}
	Logger().Infof("must not panic")
}

func TestSetupLevelsAndFormats(t *testing.T) {
	prev := global
	t.Cleanup(func() { global = prev })

	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"", "", false},
		{"debug", "text", false},
		{"WARN", "json", false},
		{"error", "console", false},
		{"loud", "text", true},
		{"info", "xml", true},
	}
	for _, tc := range tests {
		l, err := Setup(tc.level, tc.format)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Setup(%q, %q): expected error", tc.level, tc.format)
			}
			continue
		}
		if err != nil {
			t.Errorf("Setup(%q, %q): unexpected error: %v", tc.level, tc.format, err)
			continue
		}
		if Logger() != l {
			t.Errorf("Setup(%q, %q) did not install the logger", tc.level, tc.format)
		}
	}
}

func TestWriteListReportAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	r := StringListReport{Title: "linux-firmware 1.rpm"}
	r.Add("mirror=%s status=%s", "a.example", "failed")
	r.Add("mirror=%s status=%s", "b.example", "succeeded")

	path, err := WriteListReport(dir, r)
	if err != nil {
		t.Fatalf("WriteListReport: %v", err)
	}
	if filepath.Base(path) != "fetch-linux-firmware_1.rpm.txt" {
		t.Errorf("unexpected report file name %q", filepath.Base(path))
	}
	if _, err := WriteListReport(dir, r); err != nil {
		t.Fatalf("second WriteListReport: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	content := string(data)
	if got := strings.Count(content, "mirror=b.example status=succeeded"); got != 2 {
		t.Errorf("expected report appended twice, found %d entries:\n%s", got, content)
	}
	if !strings.HasPrefix(content, "# linux-firmware 1.rpm ") {
		t.Errorf("missing header line:\n%s", content)
	}
}

func TestSanitizeTitle(t *testing.T) {
	if got := sanitizeTitle(""); got != "untitled" {
		t.Errorf("empty title: got %q", got)
	}
	if got := sanitizeTitle("a/b c"); got != "a_b_c" {
		t.Errorf("got %q", got)
	}
}
