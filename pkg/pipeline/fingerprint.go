package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/docuforge/doc-pipeline/pkg/util"
)

// fingerprintLen truncates the content hash to keep staging directory names
// short while staying collision-safe for a single output directory.
const fingerprintLen = 16

// Fingerprint derives the stable identifier used to name a file's staging
// subdirectory: the hex SHA-256 of the file content, truncated. When the file
// cannot be hashed (unreadable, racing deletion) it falls back to a sanitized
// basename+wall-clock identifier so the run can still proceed; the fallback
// is not stable across runs, which only costs a cache miss.
func Fingerprint(path string, loggerHandler slog.Handler) string {
	logger := slog.New(loggerHandler).With(slog.String("component", "fingerprint"))

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Cannot open file for hashing, using name+timestamp fallback",
			slog.String("path", path), slog.String("error", err.Error()))
		return fallbackFingerprint(path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		logger.Warn("Cannot hash file content, using name+timestamp fallback",
			slog.String("path", path), slog.String("error", err.Error()))
		return fallbackFingerprint(path)
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}

func fallbackFingerprint(path string) string {
	stamp := time.Now().UTC().Format("20060102T150405")
	return util.SanitizeIdentifier(filepath.Base(path) + "_" + stamp)
}
