package utils

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"clean_name", "hasil_lab.pdf", "hasil_lab.pdf"},
		{"directory_traversal", "../../etc/passwd", "etcpasswd"},
		{"special_chars", "lab<>result?.pdf", "labresult.pdf"},
		{"trims_dots_and_spaces", "  rujukan.pdf. ", "rujukan.pdf"},
		{"spaces_kept", "surat rujukan.pdf", "surat rujukan.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.filename)
			if got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameLimitsLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".pdf"
	got := SanitizeFilename(long)
	if len(got) > 255 {
		t.Errorf("sanitized length = %d, want <= 255", len(got))
	}
}
