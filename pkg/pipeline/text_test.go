package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/tool"
)

type textToolInvoker struct {
	output      string
	writeTo     string // "" writes to the {output} arg; otherwise to this path
	failWith    error
}

func (s *textToolInvoker) Invoke(ctx context.Context, inv tool.Invocation) (tool.Result, error) {
	if s.failWith != nil {
		return tool.Result{}, s.failWith
	}
	target := inv.Args[1]
	if s.writeTo != "" {
		target = s.writeTo
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return tool.Result{}, err
	}
	return tool.Result{}, os.WriteFile(target, []byte(s.output), 0o644)
}

func textOptions(inv tool.Invoker, workDir string) *Options {
	return &Options{
		Text: TextConfig{
			Tool:              "extractor",
			Args:              []string{"{input}", "{output}"},
			DefaultOutputName: "output.txt",
			Extensions:        []string{".pdf"},
			Suffix:            ".txt",
		},
		Invoker:     inv,
		Logger:      discardHandler(),
		ToolTimeout: time.Minute,
		WorkDir:     workDir,
	}
}

func TestTextPipelineProcess(t *testing.T) {
	inv := &textToolInvoker{output: "extracted text"}
	p := newTextPipeline(textOptions(inv, ""), discardHandler())

	input := filepath.Join(t.TempDir(), "doc.pdf")
	writeFile(t, input, "pdf bytes")
	output := filepath.Join(t.TempDir(), "doc.txt")

	rec, err := p.Process(context.Background(), input, output)
	require.NoError(t, err)
	assert.Nil(t, rec, "text pipeline has no structured payload")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "extracted text", string(data))
}

func TestTextPipelineEmptyOutputFails(t *testing.T) {
	inv := &textToolInvoker{output: "  \n "}
	p := newTextPipeline(textOptions(inv, ""), discardHandler())

	input := filepath.Join(t.TempDir(), "doc.pdf")
	writeFile(t, input, "pdf bytes")
	output := filepath.Join(t.TempDir(), "doc.txt")

	_, err := p.Process(context.Background(), input, output)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.NoFileExists(t, output, "empty artifact removed so a rerun is not skipped")
}

func TestTextPipelineFallbackToWorkDirDefault(t *testing.T) {
	workDir := t.TempDir()
	inv := &textToolInvoker{output: "recovered", writeTo: filepath.Join(workDir, "output.txt")}
	p := newTextPipeline(textOptions(inv, workDir), discardHandler())

	input := filepath.Join(t.TempDir(), "doc.pdf")
	writeFile(t, input, "pdf bytes")
	output := filepath.Join(t.TempDir(), "doc.txt")

	rec, err := p.Process(context.Background(), input, output)
	require.NoError(t, err)
	assert.Nil(t, rec)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(data), "artifact relocated from the tool's default location")
	assert.NoFileExists(t, filepath.Join(workDir, "output.txt"))
}

func TestTextPipelineToolFailure(t *testing.T) {
	inv := &textToolInvoker{failWith: tool.Errorf("exit 3")}
	p := newTextPipeline(textOptions(inv, ""), discardHandler())

	input := filepath.Join(t.TempDir(), "doc.pdf")
	writeFile(t, input, "pdf bytes")

	_, err := p.Process(context.Background(), input, filepath.Join(t.TempDir(), "doc.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStageFailure)
}
