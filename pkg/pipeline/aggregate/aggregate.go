// Package aggregate groups successfully processed records by a discriminant
// field and writes one summary file per non-empty group, either as a
// pretty-printed JSON array or as a flattened CSV table.
package aggregate

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/record"
	"github.com/docuforge/doc-pipeline/pkg/util"
)

// SummaryDirName is the subdirectory of the output location that holds the
// grouped summary files.
const SummaryDirName = "total"

// Format selects the summary serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Valid reports whether f is a supported summary format.
func (f Format) Valid() bool {
	return f == FormatJSON || f == FormatCSV
}

// ErrWrite indicates a summary file could not be written.
var ErrWrite = errors.New("failed to write summary file")

// Write groups results by discriminantKey and writes one file per non-empty
// group under outputDir/total. Records lacking the discriminant fall into an
// implicit ungrouped bucket that is never written out: only classified items
// are summarized. Each group file independently honors the skip-if-exists
// policy when overwrite is false. Returns the paths actually written.
func Write(results []record.Record, outputDir string, format Format, overwrite bool, discriminantKey string, loggerHandler slog.Handler) ([]string, error) {
	logger := slog.New(loggerHandler).With(slog.String("component", "aggregate"))

	groups := make(map[string][]record.Record)
	ungrouped := 0
	for _, rec := range results {
		name := util.SanitizeIdentifier(rec.Discriminant(discriminantKey))
		if name == "" {
			ungrouped++
			continue
		}
		groups[name] = append(groups[name], rec)
	}
	if ungrouped > 0 {
		logger.Debug("Records without discriminant left out of summaries",
			slog.String("discriminant", discriminantKey), slog.Int("count", ungrouped))
	}
	if len(groups) == 0 {
		return nil, nil
	}

	summaryDir := filepath.Join(outputDir, SummaryDirName)
	if err := os.MkdirAll(summaryDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create summary directory %q: %v", ErrWrite, summaryDir, err)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		path := filepath.Join(summaryDir, name+"."+string(format))
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				logger.Info("Summary file exists, skipping (overwrite disabled)", slog.String("path", path))
				continue
			}
		}
		var err error
		switch format {
		case FormatCSV:
			err = writeCSV(path, groups[name], discriminantKey)
		default:
			err = writeJSON(path, groups[name])
		}
		if err != nil {
			return written, err
		}
		logger.Info("Summary file written",
			slog.String("group", name), slog.String("path", path), slog.Int("entries", len(groups[name])))
		written = append(written, path)
	}
	return written, nil
}

func writeJSON(path string, recs []record.Record) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: cannot marshal group for %q: %v", ErrWrite, path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrWrite, path, err)
	}
	return nil
}

// writeCSV flattens each record and emits a table whose columns are the
// sorted union of all flattened keys. encoding/csv handles quoting: values
// containing the delimiter, a quote or a newline are quoted with embedded
// quotes doubled.
func writeCSV(path string, recs []record.Record, discriminantKey string) error {
	flat := make([]map[string]string, 0, len(recs))
	columnSet := make(map[string]struct{})
	for _, rec := range recs {
		row := rec.Flatten(discriminantKey)
		flat = append(flat, row)
		for k := range row {
			columnSet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(columnSet))
	for k := range columnSet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrWrite, path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		f.Close()
		return fmt.Errorf("%w: %q: %v", ErrWrite, path, err)
	}
	row := make([]string, len(columns))
	for _, rec := range flat {
		for i, col := range columns {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("%w: %q: %v", ErrWrite, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %q: %v", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrWrite, path, err)
	}
	return nil
}
