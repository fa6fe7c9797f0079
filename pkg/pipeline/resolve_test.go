package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunModeFor(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "in.pdf")
	writeFile(t, file, "x")

	assert.Equal(t, RunModeBatch, RunModeFor(dir))
	assert.Equal(t, RunModeSingle, RunModeFor(file))
	assert.Equal(t, RunModeSingle, RunModeFor(filepath.Join(dir, "missing")))
}

func TestResolveOutputPathBatch(t *testing.T) {
	t.Run("Existing directory accepted", func(t *testing.T) {
		dir := t.TempDir()
		resolved, err := ResolveOutputPath(dir, RunModeBatch)
		require.NoError(t, err)
		assert.Equal(t, dir, resolved)
	})

	t.Run("Absent directory created", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out", "deep")
		resolved, err := ResolveOutputPath(target, RunModeBatch)
		require.NoError(t, err)
		assert.DirExists(t, resolved)
	})

	t.Run("Existing file rejected before any processing", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "out.txt")
		writeFile(t, file, "x")
		_, err := ResolveOutputPath(file, RunModeBatch)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "must be a directory")
	})
}

func TestResolveOutputPathSingle(t *testing.T) {
	t.Run("Existing file accepted as-is", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "out.txt")
		writeFile(t, file, "old")
		resolved, err := ResolveOutputPath(file, RunModeSingle)
		require.NoError(t, err)
		assert.Equal(t, file, resolved)
	})

	t.Run("Absent path gets parent created", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "sub", "out.txt")
		resolved, err := ResolveOutputPath(target, RunModeSingle)
		require.NoError(t, err)
		assert.DirExists(t, filepath.Dir(resolved))
		_, statErr := os.Stat(resolved)
		assert.True(t, os.IsNotExist(statErr), "file itself is not created")
	})
}

func TestDeriveOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in", "receipt-01.pdf")
	writeFile(t, input, "x")
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	t.Run("No output places artifact beside input", func(t *testing.T) {
		got := DeriveOutputPath("", RunModeSingle, input, ".receipt.json", ".json")
		assert.Equal(t, filepath.Join(dir, "in", "receipt-01.receipt.json"), got)
	})

	t.Run("Directory target joins basename and suffix", func(t *testing.T) {
		got := DeriveOutputPath(outDir, RunModeBatch, input, ".receipt.json", ".json")
		assert.Equal(t, filepath.Join(outDir, "receipt-01.receipt.json"), got)
	})

	t.Run("Concrete file with extension used verbatim", func(t *testing.T) {
		target := filepath.Join(dir, "custom.json")
		got := DeriveOutputPath(target, RunModeSingle, input, ".receipt.json", ".json")
		assert.Equal(t, target, got)
	})

	t.Run("Extensionless file target gets default extension", func(t *testing.T) {
		target := filepath.Join(dir, "custom")
		got := DeriveOutputPath(target, RunModeSingle, input, ".receipt.json", ".json")
		assert.Equal(t, target+".json", got)
	})
}
