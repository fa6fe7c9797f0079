package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeIdentifier(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Simple lowercase", input: "groceries", expected: "groceries"},
		{name: "Mixed case", input: "Office Supplies", expected: "office_supplies"},
		{name: "Punctuation run collapses", input: "Food & Drink!!", expected: "food_drink"},
		{name: "Leading and trailing junk", input: "  --travel--  ", expected: "travel"},
		{name: "Digits kept", input: "Q3 2025", expected: "q3_2025"},
		{name: "Only junk", input: "!!!", expected: ""},
		{name: "Empty", input: "", expected: ""},
		{name: "Unicode dropped", input: "café", expected: "caf"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeIdentifier(tc.input))
		})
	}
}

func TestBaseWithoutExt(t *testing.T) {
	assert.Equal(t, "receipt-01", BaseWithoutExt("/data/in/receipt-01.pdf"))
	assert.Equal(t, "archive.tar", BaseWithoutExt("archive.tar.gz"))
	assert.Equal(t, "README", BaseWithoutExt("docs/README"))
	assert.Equal(t, "", BaseWithoutExt(".env"))
}

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, ".pdf", NormalizeExtension("pdf"))
	assert.Equal(t, ".pdf", NormalizeExtension(".PDF"))
	assert.Equal(t, ".docx", NormalizeExtension("  .docx "))
	assert.Equal(t, "", NormalizeExtension(""))
	assert.Equal(t, "", NormalizeExtension("   "))
}
