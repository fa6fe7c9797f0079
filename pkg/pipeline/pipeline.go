package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/record"
)

// Pipeline is the strategy implemented by each concrete document pipeline.
// The engine owns discovery, output resolution, the resume check and
// aggregation; Process owns the per-file stages.
type Pipeline interface {
	// Name identifies the pipeline in logs and the report.
	Name() string
	// Extensions is the input extension allow-list.
	Extensions() []string
	// Suffix is appended to the input basename to derive the per-file
	// output name; it doubles as the default extension for an
	// extensionless single-file output target.
	Suffix() string
	// Tools lists the external executables to probe before any work.
	Tools() []string
	// Aggregatable reports whether per-file payloads feed grouped
	// summaries (and whether resumed outputs must be re-read).
	Aggregatable() bool
	// DiscriminantKey names the record field used for summary grouping.
	// Only meaningful when Aggregatable is true.
	DiscriminantKey() string
	// Process runs all stages for one file and persists the output at
	// outputPath. The returned record is nil for pipelines without a
	// structured payload.
	Process(ctx context.Context, inputPath, outputPath string) (record.Record, error)
}

// Pipeline names accepted by New.
const (
	PipelineText      = "text"
	PipelineReceipt   = "receipt"
	PipelineContract  = "contract"
	PipelineTranscode = "transcode"
)

// New constructs the named pipeline from the run options.
func New(opts *Options, loggerHandler slog.Handler) (Pipeline, error) {
	switch opts.PipelineName {
	case PipelineText:
		return newTextPipeline(opts, loggerHandler), nil
	case PipelineReceipt:
		return newStructuredPipeline(PipelineReceipt, opts.Receipt, opts, loggerHandler)
	case PipelineContract:
		return newStructuredPipeline(PipelineContract, opts.Contract, opts, loggerHandler)
	case PipelineTranscode:
		return newMediaPipeline(opts, loggerHandler), nil
	default:
		return nil, fmt.Errorf("%w: unknown pipeline %q", ErrConfigValidation, opts.PipelineName)
	}
}
