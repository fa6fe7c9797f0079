package util

import (
	"path/filepath"
	"strings"
)

// SanitizeIdentifier lowercases s and collapses every run of non-alphanumeric
// characters into a single underscore, with no leading or trailing
// underscore. Used for group file names and fingerprint fallbacks.
func SanitizeIdentifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			if b.Len() > 0 {
				pendingSep = true
			}
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BaseWithoutExt returns the file name of path with its extension removed.
func BaseWithoutExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NormalizeExtension ensures ext is lowercase and carries a leading dot.
// An empty extension stays empty.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
