package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocateArtifact recovers a tool's output when it was not written to the
// requested path. Some extraction tools ignore the caller's output flag under
// certain invocation modes and write to an internal default location instead,
// so when the expected output file is absent after a run, two fallback
// locations are searched (first match wins):
//
//  1. the per-file staging directory, for any file with the expected suffix;
//  2. the working directory, non-recursively, for the tool's known default
//     output name.
//
// A found artifact is moved to expectedPath and the staging copy removed. If
// no candidate exists anywhere, the stage fails with ErrArtifactNotFound.
func LocateArtifact(stagingDir, suffix, workDir, defaultName, expectedPath string, loggerHandler slog.Handler) error {
	logger := slog.New(loggerHandler).With(slog.String("component", "locator"))

	if stagingDir != "" {
		candidate, err := findBySuffix(stagingDir, suffix)
		if err == nil && candidate != "" {
			logger.Debug("Artifact recovered from staging directory",
				slog.String("found", candidate), slog.String("expected", expectedPath))
			return relocate(candidate, expectedPath)
		}
	}

	if workDir != "" && defaultName != "" {
		candidate := filepath.Join(workDir, defaultName)
		if fileExists(candidate) {
			logger.Debug("Artifact recovered from working directory default location",
				slog.String("found", candidate), slog.String("expected", expectedPath))
			return relocate(candidate, expectedPath)
		}
	}

	return fmt.Errorf("%w: expected %q, searched staging %q and %q for %q",
		ErrArtifactNotFound, expectedPath, stagingDir, workDir, defaultName)
}

// findBySuffix returns the first (sorted) direct entry of dir whose name ends
// with suffix, or "" when none matches.
func findBySuffix(dir, suffix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if suffix == "" || strings.HasSuffix(strings.ToLower(entry.Name()), strings.ToLower(suffix)) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[0], nil
}

// relocate moves src to dst, falling back to copy+remove across filesystems.
func relocate(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: cannot create directory for %q: %v", ErrPersistFailure, dst, err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: cannot open located artifact %q: %v", ErrPersistFailure, src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: cannot create %q: %v", ErrPersistFailure, dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("%w: cannot copy artifact to %q: %v", ErrPersistFailure, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: cannot finalize %q: %v", ErrPersistFailure, dst, err)
	}
	_ = os.Remove(src)
	return nil
}
