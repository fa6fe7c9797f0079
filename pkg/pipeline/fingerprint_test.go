package pipeline

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStableForContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	writeFile(t, a, "same content")
	writeFile(t, b, "same content")

	fpA := Fingerprint(a, discardHandler())
	fpB := Fingerprint(b, discardHandler())

	assert.Len(t, fpA, fingerprintLen)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]+$`), fpA)
	assert.Equal(t, fpA, fpB, "fingerprint depends on content, not path")
	assert.Equal(t, fpA, Fingerprint(a, discardHandler()), "stable across calls")
}

func TestFingerprintDiffersForContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	writeFile(t, a, "one")
	writeFile(t, b, "two")

	assert.NotEqual(t, Fingerprint(a, discardHandler()), Fingerprint(b, discardHandler()))
}

func TestFingerprintFallbackOnUnreadableFile(t *testing.T) {
	fp := Fingerprint(filepath.Join(t.TempDir(), "missing.pdf"), discardHandler())
	assert.NotEmpty(t, fp)
	assert.Contains(t, fp, "missing_pdf")
}
