// Package record implements the structured payload produced by
// structured-extraction pipelines: parsing a record out of free-form tool
// output, enriching it with provenance metadata, discriminant lookup for
// grouping, and flattening for tabular serialization.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrParse indicates the candidate text did not contain a parsable record.
var ErrParse = errors.New("failed to parse structured record")

// Metadata fields added to every successfully parsed record.
const (
	SourceFileKey  = "source_file"
	ExtractedAtKey = "extracted_at"
)

// FieldsKey names the sub-object whose keys are promoted to the top level
// (without a prefix) when a record is flattened.
const FieldsKey = "fields"

// maxPreviewBytes bounds the payload excerpt embedded in parse errors.
const maxPreviewBytes = 256

// arrayJoinSeparator joins array values into a single cell when flattening.
const arrayJoinSeparator = "; "

// Record is a parsed key/value payload for one processed document.
type Record map[string]interface{}

// ExtractFencedBlock returns the content of the first fenced code block in s,
// tolerating leading prose and an optional language tag after the opening
// fence. If no fence is present the whole input is returned as the candidate.
func ExtractFencedBlock(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return strings.TrimSpace(s)
	}
	rest := s[start+3:]
	// Drop an optional language tag (e.g. ```json) up to the first newline.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isFenceTag(firstLine) {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Parse extracts the fenced block from payload (or treats the whole payload
// as the candidate) and decodes it as a JSON object. On failure the returned
// error wraps ErrParse and embeds only a bounded preview of the candidate,
// never the full payload.
func Parse(payload string) (Record, error) {
	candidate := ExtractFencedBlock(payload)
	if candidate == "" {
		return nil, fmt.Errorf("%w: empty candidate payload", ErrParse)
	}
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v (payload preview: %q)", ErrParse, err, Preview(candidate))
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: record is null", ErrParse)
	}
	return rec, nil
}

// Preview truncates s for inclusion in logs and error messages.
func Preview(s string) string {
	if len(s) <= maxPreviewBytes {
		return s
	}
	return s[:maxPreviewBytes] + "... (truncated)"
}

// Enrich adds the fixed provenance metadata to the record: the originating
// file name and the extraction timestamp.
func (r Record) Enrich(sourceFile string, ts time.Time) {
	r[SourceFileKey] = sourceFile
	r[ExtractedAtKey] = ts.UTC().Format(time.RFC3339)
}

// Discriminant returns the grouping value for the record, read from the top
// level first, then from the designated fields sub-object. Returns "" when
// the record carries no usable discriminant; such records fall into the
// implicit ungrouped bucket and are never summarized.
func (r Record) Discriminant(key string) string {
	if v, ok := r[key]; ok {
		if s := scalarString(v); s != "" {
			return s
		}
	}
	if nested, ok := r[FieldsKey].(map[string]interface{}); ok {
		if v, ok := nested[key]; ok {
			return scalarString(v)
		}
	}
	return ""
}

// Flatten merges nested objects into the parent using dot-joined keys, except
// the designated fields sub-object whose keys are promoted without a prefix.
// Array values are joined into a single delimited string. The discriminant
// key is always excluded: it is implicit via the file grouping. Flattening an
// already-flat record yields the same record minus the discriminant.
func (r Record) Flatten(discriminantKey string) map[string]string {
	flat := make(map[string]string, len(r))
	flattenInto(flat, "", map[string]interface{}(r))
	delete(flat, discriminantKey)
	return flat
}

func flattenInto(dst map[string]string, prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			if prefix == "" && k == FieldsKey {
				// Promoted sub-object: its keys land at the top level.
				flattenInto(dst, "", val)
			} else {
				flattenInto(dst, key, val)
			}
		case []interface{}:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, scalarString(item))
			}
			dst[key] = strings.Join(parts, arrayJoinSeparator)
		default:
			dst[key] = scalarString(v)
		}
	}
}

// Keys returns the record's top-level keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalarString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
