package aggregate

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/record"
)

func discardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}

func TestWriteJSONGroups(t *testing.T) {
	dir := t.TempDir()
	results := []record.Record{
		{"merchant": "A", "category": "Food & Drink"},
		{"merchant": "B", "category": "travel"},
		{"merchant": "C", "category": "Food & Drink"},
		{"merchant": "D"}, // no discriminant: ungrouped
	}

	written, err := Write(results, dir, FormatJSON, false, "category", discardHandler())
	require.NoError(t, err)

	expected := []string{
		filepath.Join(dir, SummaryDirName, "food_drink.json"),
		filepath.Join(dir, SummaryDirName, "travel.json"),
	}
	assert.Equal(t, expected, written, "sorted sanitized group names")

	data, err := os.ReadFile(expected[0])
	require.NoError(t, err)
	var group []record.Record
	require.NoError(t, json.Unmarshal(data, &group))
	assert.Len(t, group, 2)

	entries, err := os.ReadDir(filepath.Join(dir, SummaryDirName))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no file for the ungrouped bucket")
}

func TestWriteNothingWhenAllUngrouped(t *testing.T) {
	dir := t.TempDir()
	results := []record.Record{{"merchant": "A"}, {"merchant": "B"}}

	written, err := Write(results, dir, FormatJSON, false, "category", discardHandler())
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.NoDirExists(t, filepath.Join(dir, SummaryDirName),
		"summary directory is not even created")
}

func TestWriteSkipsExistingWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	results := []record.Record{{"category": "travel", "merchant": "A"}}

	written, err := Write(results, dir, FormatJSON, false, "category", discardHandler())
	require.NoError(t, err)
	require.Len(t, written, 1)
	original, err := os.ReadFile(written[0])
	require.NoError(t, err)

	// Second run without overwrite leaves the file untouched.
	results = append(results, record.Record{"category": "travel", "merchant": "B"})
	written2, err := Write(results, dir, FormatJSON, false, "category", discardHandler())
	require.NoError(t, err)
	assert.Empty(t, written2)
	after, err := os.ReadFile(filepath.Join(dir, SummaryDirName, "travel.json"))
	require.NoError(t, err)
	assert.Equal(t, original, after)

	// With overwrite the file is rewritten.
	written3, err := Write(results, dir, FormatJSON, true, "category", discardHandler())
	require.NoError(t, err)
	require.Len(t, written3, 1)
	after, err = os.ReadFile(written3[0])
	require.NoError(t, err)
	assert.NotEqual(t, original, after)
}

func TestWriteDisjointSubsetsYieldSameGroupFiles(t *testing.T) {
	full := []record.Record{
		{"merchant": "A", "category": "food"},
		{"merchant": "B", "category": "travel"},
		{"merchant": "C", "category": "food"},
		{"merchant": "D", "category": "office"},
		{"merchant": "E"}, // ungrouped in every split
	}
	subsetOne := full[:2]
	subsetTwo := full[2:]

	groupFiles := func(t *testing.T, dir string) []string {
		t.Helper()
		entries, err := os.ReadDir(filepath.Join(dir, SummaryDirName))
		require.NoError(t, err)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return names
	}

	fullDir := t.TempDir()
	_, err := Write(full, fullDir, FormatJSON, false, "category", discardHandler())
	require.NoError(t, err)

	splitDir := t.TempDir()
	_, err = Write(subsetOne, splitDir, FormatJSON, true, "category", discardHandler())
	require.NoError(t, err)
	_, err = Write(subsetTwo, splitDir, FormatJSON, true, "category", discardHandler())
	require.NoError(t, err)

	assert.Equal(t, groupFiles(t, fullDir), groupFiles(t, splitDir),
		"two disjoint subsets produce the same set of non-empty group files as the full set")
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	results := []record.Record{
		{
			"category": "food",
			"merchant": "A, Inc",
			"vendor":   map[string]interface{}{"vat": "DE123"},
			"fields":   map[string]interface{}{"tip": "2.00"},
		},
		{
			"category": "food",
			"merchant": "B",
			"risks":    []interface{}{"x", "y"},
		},
	}

	written, err := Write(results, dir, FormatCSV, false, "category", discardHandler())
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, filepath.Join(dir, SummaryDirName, "food.csv"), written[0])

	f, err := os.Open(written[0])
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3, "header plus one row per record")
	assert.Equal(t, []string{"merchant", "risks", "tip", "vendor.vat"}, rows[0],
		"sorted union of flattened keys, discriminant excluded, fields promoted")
	assert.Equal(t, []string{"A, Inc", "", "2.00", "DE123"}, rows[1])
	assert.Equal(t, []string{"B", "x; y", "", ""}, rows[2])
}

func TestFormatValid(t *testing.T) {
	assert.True(t, FormatJSON.Valid())
	assert.True(t, FormatCSV.Valid())
	assert.False(t, Format("yaml").Valid())
	assert.False(t, Format("").Valid())
}
