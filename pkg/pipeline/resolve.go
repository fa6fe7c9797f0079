package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/docuforge/doc-pipeline/pkg/util"
)

// RunModeFor reports whether the input path selects single-file or batch
// (directory) processing.
func RunModeFor(inputPath string) RunMode {
	if isDir(inputPath) {
		return RunModeBatch
	}
	return RunModeSingle
}

// ResolveOutputPath validates and normalizes the requested output location
// before any file is processed.
//
// Batch mode requires a directory: an existing non-directory is a validation
// error, an absent path is created. Single-file mode accepts an existing file
// or directory as-is (overwriting is governed later by the overwrite flag,
// not here); for an absent path the parent directory is ensured.
// Returns the absolute form.
func ResolveOutputPath(outputPath string, mode RunMode) (string, error) {
	abs, err := filepath.Abs(outputPath)
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve output path %q: %v", ErrValidation, outputPath, err)
	}

	info, statErr := os.Stat(abs)
	if mode == RunModeBatch {
		if statErr == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%w: output path must be a directory: %s", ErrValidation, abs)
			}
			return abs, nil
		}
		if !os.IsNotExist(statErr) {
			return "", fmt.Errorf("%w: cannot access output path %q: %v", ErrValidation, abs, statErr)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", fmt.Errorf("%w: cannot create output directory %q: %v", ErrValidation, abs, err)
		}
		return abs, nil
	}

	if statErr == nil {
		return abs, nil
	}
	if !os.IsNotExist(statErr) {
		return "", fmt.Errorf("%w: cannot access output path %q: %v", ErrValidation, abs, statErr)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("%w: cannot create parent directory for %q: %v", ErrValidation, abs, err)
	}
	return abs, nil
}

// DeriveOutputPath computes the final output file for one input.
//
// Rules: with no output specified at all, the artifact is placed beside the
// input using the pipeline's suffix. A directory target (always the case in
// batch mode) gets basename+suffix inside it. A concrete file path with an
// extension is used verbatim; one without gets the pipeline's default
// extension appended.
func DeriveOutputPath(resolvedOutput string, mode RunMode, inputPath, suffix, defaultExt string) string {
	name := util.BaseWithoutExt(inputPath) + suffix
	if resolvedOutput == "" {
		return filepath.Join(filepath.Dir(inputPath), name)
	}
	if mode == RunModeBatch || isDir(resolvedOutput) {
		return filepath.Join(resolvedOutput, name)
	}
	if filepath.Ext(resolvedOutput) != "" {
		return resolvedOutput
	}
	return resolvedOutput + defaultExt
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
