package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/record"
)

// textPipeline extracts plain text from documents with a single external
// tool invocation per file.
type textPipeline struct {
	cfg    TextConfig
	runner *stageRunner
	logger *slog.Logger
}

func newTextPipeline(opts *Options, loggerHandler slog.Handler) *textPipeline {
	return &textPipeline{
		cfg:    opts.Text,
		runner: newStageRunner(opts, loggerHandler),
		logger: slog.New(loggerHandler).With(slog.String("component", "pipeline.text")),
	}
}

func (p *textPipeline) Name() string          { return PipelineText }
func (p *textPipeline) Extensions() []string  { return p.cfg.Extensions }
func (p *textPipeline) Suffix() string        { return p.cfg.Suffix }
func (p *textPipeline) Tools() []string       { return []string{p.cfg.Tool} }
func (p *textPipeline) Aggregatable() bool    { return false }
func (p *textPipeline) DiscriminantKey() string { return "" }

func (p *textPipeline) Process(ctx context.Context, inputPath, outputPath string) (record.Record, error) {
	args := expandArgs(p.cfg.Args, map[string]string{
		"{input}":  inputPath,
		"{output}": outputPath,
	})
	_, err := p.runner.run(ctx, stageSpec{
		Name:              "extract",
		Tool:              p.cfg.Tool,
		Args:              args,
		ExpectedOutput:    outputPath,
		DefaultOutputName: p.cfg.DefaultOutputName,
	})
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrReadFailed, outputPath, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		_ = os.Remove(outputPath)
		return nil, fmt.Errorf("%w: %w: extractor produced no text for %q", ErrStageFailure, ErrEmptyPayload, inputPath)
	}
	p.logger.Debug("Text extracted",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.Int("bytes", len(data)))
	return nil, nil
}
