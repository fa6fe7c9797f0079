package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/docuforge/doc-pipeline/pkg/util"
)

// Discover enumerates the eligible input files for a run: given a root path
// and an extension allow-list, it returns the lexicographically sorted list
// of absolute candidate paths.
//
// A single-file root is included iff its extension matches the allow-list
// (case-insensitive, leading dot normalized). A directory root contributes
// only its direct entries; there is no recursion by design. A file with no
// extension is excluded, never an error. An unreadable or missing root is a
// discovery error, distinct from "zero matches".
func Discover(root string, extensions []string, loggerHandler slog.Handler) ([]string, error) {
	logger := slog.New(loggerHandler).With(slog.String("component", "discovery"))

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if norm := util.NormalizeExtension(ext); norm != "" {
			allowed[norm] = struct{}{}
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot access input root %q: %v", ErrDiscovery, root, err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve input root %q: %v", ErrDiscovery, root, err)
	}

	if !info.IsDir() {
		if matchesExtension(absRoot, allowed) {
			logger.Debug("Single-file input accepted", slog.String("path", absRoot))
			return []string{absRoot}, nil
		}
		logger.Debug("Single-file input excluded by extension allow-list", slog.String("path", absRoot))
		return nil, nil
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot list input directory %q: %v", ErrDiscovery, absRoot, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(absRoot, entry.Name())
		if matchesExtension(path, allowed) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	logger.Debug("Input discovery complete",
		slog.String("root", absRoot),
		slog.Int("entries", len(entries)),
		slog.Int("matched", len(files)))
	return files, nil
}

func matchesExtension(path string, allowed map[string]struct{}) bool {
	ext := util.NormalizeExtension(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := allowed[ext]
	return ok
}
