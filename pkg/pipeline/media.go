package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/record"
)

// mediaPipeline transcodes media files with a single external tool
// invocation per file. The artifact is the transcoded file itself; there is
// no structured payload and no aggregation.
type mediaPipeline struct {
	cfg    MediaConfig
	runner *stageRunner
	logger *slog.Logger
}

func newMediaPipeline(opts *Options, loggerHandler slog.Handler) *mediaPipeline {
	return &mediaPipeline{
		cfg:    opts.Media,
		runner: newStageRunner(opts, loggerHandler),
		logger: slog.New(loggerHandler).With(slog.String("component", "pipeline.transcode")),
	}
}

func (p *mediaPipeline) Name() string            { return PipelineTranscode }
func (p *mediaPipeline) Extensions() []string    { return p.cfg.Extensions }
func (p *mediaPipeline) Suffix() string          { return p.cfg.TargetExtension }
func (p *mediaPipeline) Tools() []string         { return []string{p.cfg.Tool} }
func (p *mediaPipeline) Aggregatable() bool      { return false }
func (p *mediaPipeline) DiscriminantKey() string { return "" }

func (p *mediaPipeline) Process(ctx context.Context, inputPath, outputPath string) (record.Record, error) {
	args := expandArgs(p.cfg.Args, map[string]string{
		"{input}":  inputPath,
		"{output}": outputPath,
	})
	if _, err := p.runner.run(ctx, stageSpec{
		Name:              "transcode",
		Tool:              p.cfg.Tool,
		Args:              args,
		ExpectedOutput:    outputPath,
		DefaultOutputName: p.cfg.DefaultOutputName,
	}); err != nil {
		return nil, err
	}
	if !fileExists(outputPath) {
		return nil, fmt.Errorf("%w: transcoder wrote no artifact for %q", ErrStageFailure, inputPath)
	}
	p.logger.Debug("Media transcoded",
		slog.String("input", inputPath), slog.String("output", outputPath))
	return nil, nil
}
