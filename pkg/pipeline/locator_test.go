package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateArtifactStagingTier(t *testing.T) {
	staging := t.TempDir()
	expected := filepath.Join(t.TempDir(), "doc.extracted.txt")
	writeFile(t, filepath.Join(staging, "b_output.txt"), "second")
	writeFile(t, filepath.Join(staging, "a_output.txt"), "first")
	writeFile(t, filepath.Join(staging, "other.md"), "wrong suffix")

	err := LocateArtifact(staging, ".txt", "", "", expected, discardHandler())
	require.NoError(t, err)

	data, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "first sorted match wins")
	assert.NoFileExists(t, filepath.Join(staging, "a_output.txt"), "staging copy removed")
	assert.FileExists(t, filepath.Join(staging, "b_output.txt"))
}

func TestLocateArtifactWorkDirTier(t *testing.T) {
	staging := t.TempDir() // empty: tier 1 misses
	workDir := t.TempDir()
	expected := filepath.Join(t.TempDir(), "doc.txt")
	writeFile(t, filepath.Join(workDir, "output.txt"), "payload")

	err := LocateArtifact(staging, ".txt", workDir, "output.txt", expected, discardHandler())
	require.NoError(t, err)

	data, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.NoFileExists(t, filepath.Join(workDir, "output.txt"))
}

func TestLocateArtifactStagingWinsOverWorkDir(t *testing.T) {
	staging := t.TempDir()
	workDir := t.TempDir()
	expected := filepath.Join(t.TempDir(), "doc.txt")
	writeFile(t, filepath.Join(staging, "found.txt"), "from staging")
	writeFile(t, filepath.Join(workDir, "output.txt"), "from workdir")

	err := LocateArtifact(staging, ".txt", workDir, "output.txt", expected, discardHandler())
	require.NoError(t, err)

	data, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Equal(t, "from staging", string(data))
	assert.FileExists(t, filepath.Join(workDir, "output.txt"), "lower tier untouched")
}

func TestLocateArtifactNotFound(t *testing.T) {
	err := LocateArtifact(t.TempDir(), ".txt", t.TempDir(), "output.txt",
		filepath.Join(t.TempDir(), "doc.txt"), discardHandler())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLocateArtifactWorkDirExactNameOnly(t *testing.T) {
	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, "other.txt"), "x")

	err := LocateArtifact("", ".txt", workDir, "output.txt",
		filepath.Join(t.TempDir(), "doc.txt"), discardHandler())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArtifactNotFound,
		"working-directory tier matches the known default name only, never by suffix")
}
