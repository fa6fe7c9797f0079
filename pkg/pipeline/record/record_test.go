package record

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFencedBlock(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "No fence returns whole input",
			input:    `{"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "Plain fence",
			input:    "```\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "Language tag dropped",
			input:    "```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "Leading prose tolerated",
			input:    "Sure, here is the extracted data:\n```json\n{\"a\": 1}\n```\nLet me know if you need more.",
			expected: `{"a": 1}`,
		},
		{
			name:     "Unterminated fence",
			input:    "```json\n{\"a\": 1}",
			expected: `{"a": 1}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractFencedBlock(tc.input))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("Fenced JSON with prose", func(t *testing.T) {
		rec, err := Parse("Here you go:\n```json\n{\"merchant\": \"ACME\", \"total\": 12.50}\n```")
		require.NoError(t, err)
		assert.Equal(t, "ACME", rec["merchant"])
	})

	t.Run("Bare JSON object", func(t *testing.T) {
		rec, err := Parse(`{"category": "travel"}`)
		require.NoError(t, err)
		assert.Equal(t, "travel", rec["category"])
	})

	t.Run("Empty payload", func(t *testing.T) {
		_, err := Parse("   ")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("Null record", func(t *testing.T) {
		_, err := Parse("null")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("Invalid JSON embeds bounded preview", func(t *testing.T) {
		payload := "not json at all " + strings.Repeat("x", 4096)
		_, err := Parse(payload)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParse)
		assert.Less(t, len(err.Error()), 1024, "error must not embed the full payload")
		assert.Contains(t, err.Error(), "truncated")
	})
}

func TestEnrich(t *testing.T) {
	rec := Record{"total": "10"}
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	rec.Enrich("receipt-01.pdf", ts)

	assert.Equal(t, "receipt-01.pdf", rec[SourceFileKey])
	assert.Equal(t, "2025-06-01T12:30:00Z", rec[ExtractedAtKey])
}

func TestDiscriminant(t *testing.T) {
	t.Run("Top level wins", func(t *testing.T) {
		rec := Record{"category": "food", FieldsKey: map[string]interface{}{"category": "nested"}}
		assert.Equal(t, "food", rec.Discriminant("category"))
	})

	t.Run("Falls back to fields sub-object", func(t *testing.T) {
		rec := Record{FieldsKey: map[string]interface{}{"category": "travel"}}
		assert.Equal(t, "travel", rec.Discriminant("category"))
	})

	t.Run("Missing yields empty", func(t *testing.T) {
		rec := Record{"merchant": "ACME"}
		assert.Equal(t, "", rec.Discriminant("category"))
	})

	t.Run("Non-string scalar stringified", func(t *testing.T) {
		rec, err := Parse(`{"category": 42}`)
		require.NoError(t, err)
		assert.Equal(t, "42", rec.Discriminant("category"))
	})
}

func TestFlatten(t *testing.T) {
	t.Run("Nested objects dot-joined, fields promoted", func(t *testing.T) {
		rec := Record{
			"merchant": "ACME",
			"category": "food",
			"vendor":   map[string]interface{}{"name": "ACME Inc", "vat": "DE123"},
			FieldsKey:  map[string]interface{}{"tip": "2.00"},
		}
		flat := rec.Flatten("category")

		assert.Equal(t, "ACME", flat["merchant"])
		assert.Equal(t, "ACME Inc", flat["vendor.name"])
		assert.Equal(t, "DE123", flat["vendor.vat"])
		assert.Equal(t, "2.00", flat["tip"])
		_, hasDiscriminant := flat["category"]
		assert.False(t, hasDiscriminant, "discriminant must be excluded")
	})

	t.Run("Arrays joined", func(t *testing.T) {
		rec := Record{"risks": []interface{}{"auto-renewal", "unlimited liability"}}
		flat := rec.Flatten("")
		assert.Equal(t, "auto-renewal; unlimited liability", flat["risks"])
	})

	t.Run("Flattening a flat record is stable", func(t *testing.T) {
		rec := Record{"a": "1", "b": "2"}
		first := rec.Flatten("x")
		second := rec.Flatten("x")
		assert.Equal(t, first, second)
	})

	t.Run("Already-flat record yields itself minus the discriminant", func(t *testing.T) {
		rec := Record{"a": "1", "b": "2", "category": "food"}
		flat := rec.Flatten("category")
		assert.Equal(t, map[string]string{"a": "1", "b": "2"}, flat)

		// Re-flattening the result changes nothing further.
		again := Record{}
		for k, v := range flat {
			again[k] = v
		}
		assert.Equal(t, flat, again.Flatten("category"))
	})
}

func TestKeys(t *testing.T) {
	rec := Record{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, rec.Keys())
}
