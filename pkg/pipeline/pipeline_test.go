package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineFactory(t *testing.T) {
	opts := &Options{
		Text:     TextConfig{Tool: "markitdown", Extensions: []string{".pdf"}, Suffix: ".txt"},
		Receipt:  StructuredConfig{ExtractTool: "markitdown", StructureTool: "llm", Suffix: ".receipt.json"},
		Contract: StructuredConfig{ExtractTool: "markitdown", StructureTool: "llm", Suffix: ".review.json"},
		Media:    MediaConfig{Tool: "ffmpeg", TargetExtension: ".mp3"},
		Logger:   discardHandler(),
	}

	for _, name := range []string{PipelineText, PipelineReceipt, PipelineContract, PipelineTranscode} {
		opts.PipelineName = name
		p, err := New(opts, discardHandler())
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestNewPipelineUnknownName(t *testing.T) {
	opts := &Options{PipelineName: "spreadsheet", Logger: discardHandler()}
	_, err := New(opts, discardHandler())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestNewPipelineInvalidSchema(t *testing.T) {
	opts := &Options{
		PipelineName: PipelineReceipt,
		Receipt:      StructuredConfig{Schema: `{"type": 42}`},
		Logger:       discardHandler(),
	}
	_, err := New(opts, discardHandler())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestExpandArgs(t *testing.T) {
	args := expandArgs(
		[]string{"-i", "{input}", "{output}", "--mode", "fast"},
		map[string]string{"{input}": "/in/a.mp4", "{output}": "/out/a.mp3"},
	)
	assert.Equal(t, []string{"-i", "/in/a.mp4", "/out/a.mp3", "--mode", "fast"}, args)
}
