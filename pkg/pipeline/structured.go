package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/record"
	"github.com/docuforge/doc-pipeline/pkg/pipeline/schema"
	"github.com/docuforge/doc-pipeline/pkg/util"
)

// intermediateSuffix names the reusable extraction by-product stored in the
// per-file staging directory.
const intermediateSuffix = ".extracted.txt"

// structuredPipeline runs the two-stage extract-then-structure shape shared
// by the receipt and contract pipelines: a text extraction stage with a
// fingerprint-keyed intermediate cache, followed by a structuring stage whose
// free-form output is parsed into a record, validated, enriched and persisted
// as pretty-printed JSON.
type structuredPipeline struct {
	name      string
	cfg       StructuredConfig
	opts      *Options
	runner    *stageRunner
	validator *schema.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func newStructuredPipeline(name string, cfg StructuredConfig, opts *Options, loggerHandler slog.Handler) (*structuredPipeline, error) {
	validator, err := schema.NewValidator(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: pipeline %q: %v", ErrConfigValidation, name, err)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &structuredPipeline{
		name:      name,
		cfg:       cfg,
		opts:      opts,
		runner:    newStageRunner(opts, loggerHandler),
		validator: validator,
		logger:    slog.New(loggerHandler).With(slog.String("component", "pipeline."+name)),
		now:       now,
	}, nil
}

func (p *structuredPipeline) Name() string            { return p.name }
func (p *structuredPipeline) Extensions() []string    { return p.cfg.Extensions }
func (p *structuredPipeline) Suffix() string          { return p.cfg.Suffix }
func (p *structuredPipeline) Aggregatable() bool      { return true }
func (p *structuredPipeline) DiscriminantKey() string { return p.cfg.Discriminant }

func (p *structuredPipeline) Tools() []string {
	return []string{p.cfg.ExtractTool, p.cfg.StructureTool}
}

func (p *structuredPipeline) Process(ctx context.Context, inputPath, outputPath string) (record.Record, error) {
	text, err := p.extractText(ctx, inputPath, outputPath)
	if err != nil {
		return nil, err
	}

	rec, err := p.structure(ctx, inputPath, text)
	if err != nil {
		return nil, err
	}

	rec.Enrich(filepath.Base(inputPath), p.now())

	if err := p.persist(rec, outputPath); err != nil {
		return nil, err
	}
	return rec, nil
}

// extractText returns the raw text for inputPath, reusing the cached
// intermediate when a prior run already produced it. The cache is keyed by a
// content fingerprint and deliberately ignores the overwrite flag: overwrite
// governs only final outputs, so a stale cached extraction can mask an
// underlying document change. Accepted trade-off.
func (p *structuredPipeline) extractText(ctx context.Context, inputPath, outputPath string) (string, error) {
	fingerprint := Fingerprint(inputPath, p.logger.Handler())
	stagingDir := filepath.Join(filepath.Dir(outputPath), fingerprint)
	intermediate := filepath.Join(stagingDir, util.BaseWithoutExt(inputPath)+intermediateSuffix)

	if fileExists(intermediate) {
		p.logger.Debug("Reusing cached extraction",
			slog.String("input", inputPath), slog.String("intermediate", intermediate))
	} else {
		if err := os.MkdirAll(stagingDir, 0o755); err != nil {
			return "", fmt.Errorf("%w: cannot create staging directory %q: %v", ErrStageFailure, stagingDir, err)
		}
		args := expandArgs(p.cfg.ExtractArgs, map[string]string{
			"{input}":  inputPath,
			"{output}": intermediate,
		})
		if _, err := p.runner.run(ctx, stageSpec{
			Name:              "extract",
			Tool:              p.cfg.ExtractTool,
			Args:              args,
			ExpectedOutput:    intermediate,
			StagingDir:        stagingDir,
			FallbackSuffix:    ".txt",
			DefaultOutputName: p.cfg.ExtractDefaultOutputName,
		}); err != nil {
			return "", err
		}
	}

	data, err := os.ReadFile(intermediate)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrReadFailed, intermediate, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %w: no text extracted from %q", ErrStageFailure, ErrEmptyPayload, inputPath)
	}
	return text, nil
}

// structure sends the extracted text through the structuring tool and parses
// the record embedded in its free-form reply.
func (p *structuredPipeline) structure(ctx context.Context, inputPath, text string) (record.Record, error) {
	prompt := strings.NewReplacer(
		"{text}", text,
		"{file}", filepath.Base(inputPath),
	).Replace(p.cfg.Prompt)

	args := expandArgs(p.cfg.StructureArgs, map[string]string{"{prompt}": prompt})
	stdout, err := p.runner.run(ctx, stageSpec{
		Name: "structure",
		Tool: p.cfg.StructureTool,
		Args: args,
	})
	if err != nil {
		return nil, err
	}

	rec, err := record.Parse(stdout)
	if err != nil {
		p.logger.Error("Structuring output unparsable",
			slog.String("input", inputPath),
			slog.String("preview", record.Preview(record.ExtractFencedBlock(stdout))))
		return nil, fmt.Errorf("%w: %w", ErrStageFailure, err)
	}

	if err := p.validator.Validate(map[string]interface{}(rec)); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrStageFailure, ErrSchemaValidation, err)
	}
	return rec, nil
}

// persist writes the canonical pretty-printed form of the record.
func (p *structuredPipeline) persist(rec record.Record, outputPath string) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: cannot marshal record for %q: %v", ErrPersistFailure, outputPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("%w: cannot create directory for %q: %v", ErrPersistFailure, outputPath, err)
	}
	if err := os.WriteFile(outputPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrPersistFailure, outputPath, err)
	}
	return nil
}
