package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StringListReport is a titled list of lines appended to a report file.
type StringListReport struct {
	Title string
	Items []string
}

// Add appends a formatted line to the report.
func (r *StringListReport) Add(format string, args ...any) {
	r.Items = append(r.Items, fmt.Sprintf(format, args...))
}

// WriteListReport appends the report to {dir}/fetch-{title}.txt, creating
// dir if needed, and returns the file path. Each report is preceded by a
// timestamped header and followed by an empty line.
func WriteListReport(dir string, r StringListReport) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	reportFullPath := filepath.Join(dir, fmt.Sprintf("fetch-%s.txt", sanitizeTitle(r.Title)))

	f, err := os.OpenFile(reportFullPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "# %s %s\n", r.Title, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("writing to file: %w", err)
	}
	for _, item := range r.Items {
		if _, err := fmt.Fprintln(f, item); err != nil {
			return "", fmt.Errorf("writing to file: %w", err)
		}
	}
	if _, err := fmt.Fprintln(f); err != nil {
		return "", fmt.Errorf("writing new line to file: %w", err)
	}

	return reportFullPath, nil
}

// sanitizeTitle keeps ASCII letters, digits, '.', '-' and '_' and replaces
// everything else with '_'.
func sanitizeTitle(title string) string {
	if title == "" {
		return "untitled"
	}
	safe := make([]rune, 0, len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			safe = append(safe, r)
		case r == '.' || r == '-' || r == '_':
			safe = append(safe, r)
		default:
			safe = append(safe, '_')
		}
	}
	return string(safe)
}
