package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// legacyPrefix is the fixed first segment of disc-authoring filenames
// (VTS_01_2.VOB and friends).
const legacyPrefix = "VTS"

// ChapterLabel derives a chapter label from a legacy disc filename stem.
// "VTS_01_2" yields "Ch01-2". Filenames that do not match the
// three-segment underscore pattern yield no label.
func ChapterLabel(filename string) (string, bool) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != legacyPrefix {
		return "", false
	}
	if !allDigits(parts[1]) || !allDigits(parts[2]) {
		return "", false
	}
	return fmt.Sprintf("Ch%s-%s", parts[1], parts[2]), true
}

func allDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ClipName assembles a human-readable clip name from the grouping context,
// a chapter label when the source follows disc naming, and a describing
// label: "Christmas 2004 - Ch01-2 - Kids Opening Presents". Empty pieces
// are dropped; when nothing usable remains the source stem is returned.
func ClipName(contextLabel, sourceName, description string) string {
	parts := make([]string, 0, 3)
	if trimmed := strings.TrimSpace(contextLabel); trimmed != "" {
		parts = append(parts, trimmed)
	}
	if chapter, ok := ChapterLabel(sourceName); ok {
		parts = append(parts, chapter)
	}
	if sanitized := SanitizeLabel(description); sanitized != "" {
		parts = append(parts, sanitized)
	}
	if len(parts) == 0 {
		return strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	}
	return strings.Join(parts, " - ")
}

// SanitizeLabel reduces AI-supplied text to a filesystem-safe label:
// the input is NFC-normalized, then only letters, digits, spaces, hyphens,
// and underscores are retained, and the result is trimmed.
func SanitizeLabel(label string) string {
	label = norm.NFC.String(label)
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// UniquePath returns the first free path in dir for base+ext, appending an
// incrementing " (N)" counter when the unsuffixed name is taken. Existing
// files are never overwritten.
func UniquePath(dir, base, ext string) string {
	candidate := filepath.Join(dir, base+ext)
	if !exists(candidate) {
		return candidate
	}
	for counter := 1; ; counter++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, counter, ext))
		if !exists(candidate) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
