package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/aggregate"
	"github.com/docuforge/doc-pipeline/pkg/pipeline/record"
	"github.com/docuforge/doc-pipeline/pkg/pipeline/tool"
)

// Engine orchestrates one run: tool availability probes, input discovery,
// output resolution, the sequential per-file loop with the resume check, and
// the final aggregation. Files are processed strictly one at a time; the only
// state crossing files is the append-only payload accumulator.
type Engine struct {
	opts   *Options
	logger *slog.Logger
	pipe   Pipeline
	hooks  Hooks
	runID  string
}

// NewEngine validates the options and constructs an Engine. Validation
// failures are fatal and wrapped with ErrConfigValidation.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if opts.InputPath == "" {
		return nil, fmt.Errorf("%w: input path cannot be empty", ErrConfigValidation)
	}
	if opts.Invoker == nil {
		return nil, fmt.Errorf("%w: tool Invoker implementation cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = DefaultToolTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.SummaryFormat == "" {
		opts.SummaryFormat = aggregate.Format(DefaultSummaryFormat)
	}
	if !opts.SummaryFormat.Valid() {
		return nil, fmt.Errorf("%w: unsupported summary format %q", ErrConfigValidation, opts.SummaryFormat)
	}
	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			logger.Warn("Cannot determine working directory, fallback locator limited to staging tier",
				slog.String("error", err.Error()))
		}
		opts.WorkDir = wd
	}

	pipe := opts.Pipeline
	if pipe == nil {
		var err error
		pipe, err = New(&opts, opts.Logger)
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		opts:   &opts,
		logger: logger,
		pipe:   pipe,
		hooks:  opts.EventHooks,
		runID:  uuid.NewString(),
	}, nil
}

// Run executes the batch. Discovery, validation and tool-availability errors
// abort before any file is processed; per-file failures are recorded in the
// report and the batch continues. Nothing is retried.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	startTime := time.Now()
	e.logger.Info("Run starting",
		slog.String("runId", e.runID),
		slog.String("pipeline", e.pipe.Name()),
		slog.String("input", e.opts.InputPath),
		slog.Bool("overwrite", e.opts.Overwrite))

	agg := newRunAggregator()

	if err := e.probeTools(ctx); err != nil {
		return e.finish(agg, startTime, 0, true), err
	}

	files, err := Discover(e.opts.InputPath, e.pipe.Extensions(), e.logger.Handler())
	if err != nil {
		e.logger.Error("Input discovery failed", slog.String("error", err.Error()))
		return e.finish(agg, startTime, 0, true), err
	}
	if len(files) == 0 {
		e.logger.Warn("No eligible input files found",
			slog.String("input", e.opts.InputPath))
		return e.finish(agg, startTime, 0, false), nil
	}

	mode := RunModeFor(e.opts.InputPath)
	resolvedOutput := ""
	if e.opts.OutputPath != "" {
		resolvedOutput, err = ResolveOutputPath(e.opts.OutputPath, mode)
		if err != nil {
			e.logger.Error("Output path validation failed", slog.String("error", err.Error()))
			return e.finish(agg, startTime, len(files), true), err
		}
	}

	for _, file := range files {
		if hookErr := e.hooks.OnFileDiscovered(file); hookErr != nil {
			e.logger.Warn("OnFileDiscovered hook failed",
				slog.String("path", file), slog.String("error", hookErr.Error()))
		}
	}

	for _, file := range files {
		select {
		case <-ctx.Done():
			e.logger.Info("Run cancelled", slog.String("reason", ctx.Err().Error()))
			return e.finish(agg, startTime, len(files), true), ctx.Err()
		default:
		}
		e.processOne(ctx, file, resolvedOutput, mode, agg)
	}

	e.writeSummaries(agg)

	return e.finish(agg, startTime, len(files), false), nil
}

// probeTools fails the run fast with a clear diagnostic when a required tool
// is missing or blocked by policy, instead of failing mid-batch.
func (e *Engine) probeTools(ctx context.Context) error {
	for _, name := range e.pipe.Tools() {
		if err := tool.Probe(ctx, e.opts.Invoker, name, e.opts.ProbeTimeout); err != nil {
			if errors.Is(err, tool.ErrBlocked) {
				e.logger.Error("Tool blocked by allow-list policy; add it to the allowed tools to proceed",
					slog.String("tool", name))
			} else {
				e.logger.Error("Required tool not available", slog.String("tool", name))
			}
			return err
		}
		e.logger.Debug("Tool available", slog.String("tool", name))
	}
	return nil
}

// processOne handles a single file end to end: resume check, stage pipeline,
// accumulation. Failures are scoped here; the loop always continues.
func (e *Engine) processOne(ctx context.Context, file, resolvedOutput string, mode RunMode, agg *runAggregator) {
	outPath := DeriveOutputPath(resolvedOutput, mode, file, e.pipe.Suffix(), e.pipe.Suffix())
	start := time.Now()

	if !e.opts.Overwrite && fileExists(outPath) {
		e.resumeExisting(file, outPath, agg)
		return
	}

	e.updateStatus(file, StatusProcessing, "", 0)
	rec, err := e.pipe.Process(ctx, file, outPath)
	duration := time.Since(start)
	if err != nil {
		e.logger.Error("File processing failed",
			slog.String("path", file), slog.String("error", err.Error()))
		agg.addError(ErrorInfo{Path: file, Error: err.Error()})
		e.updateStatus(file, StatusFailed, err.Error(), duration)
		return
	}

	if rec != nil && e.pipe.Aggregatable() {
		agg.addPayload(rec)
	}
	agg.addProcessed(FileInfo{Path: file, OutputPath: outPath, DurationMs: duration.Milliseconds()})
	e.updateStatus(file, StatusSuccess, "", duration)
}

// resumeExisting marks a file skipped because its output already exists. For
// aggregatable pipelines the existing output is re-read so a resumed partial
// batch does not silently drop previously computed entries from the
// summaries; an unreadable existing output is reported but never fatal.
func (e *Engine) resumeExisting(file, outPath string, agg *runAggregator) {
	if !e.pipe.Aggregatable() {
		e.logger.Info("Output exists, skipping (overwrite disabled)",
			slog.String("path", file), slog.String("output", outPath))
		agg.addSkipped(SkippedInfo{Path: file, Reason: "output_exists", Details: outPath})
		e.updateStatus(file, StatusSkipped, "output exists", 0)
		return
	}

	data, err := os.ReadFile(outPath)
	if err == nil {
		var rec record.Record
		if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil && rec != nil {
			agg.addResumed(rec)
			agg.addSkipped(SkippedInfo{Path: file, Reason: "resumed", Details: outPath})
			e.logger.Info("Output exists, reusing parsed content for aggregation",
				slog.String("path", file), slog.String("output", outPath))
			e.updateStatus(file, StatusResumed, "existing output reused", 0)
			return
		}
	}
	e.logger.Warn("Existing output unreadable, excluded from summaries",
		slog.String("path", file), slog.String("output", outPath))
	agg.addUnreadable(SkippedInfo{Path: file, Reason: "output_exists_unreadable", Details: outPath})
	e.updateStatus(file, StatusSkipped, "existing output unreadable", 0)
}

// writeSummaries emits the grouped summary files for aggregatable pipelines.
// A summary write failure is reported but does not fail the run: the per-file
// outputs already exist.
func (e *Engine) writeSummaries(agg *runAggregator) {
	if !e.pipe.Aggregatable() || len(agg.payloads) == 0 {
		return
	}
	outDir := e.summaryBaseDir()
	written, err := aggregate.Write(agg.payloads, outDir, e.opts.SummaryFormat,
		e.opts.Overwrite, e.pipe.DiscriminantKey(), e.logger.Handler())
	if err != nil {
		e.logger.Error("Summary aggregation failed", slog.String("error", err.Error()))
		agg.addError(ErrorInfo{Path: outDir, Stage: "aggregate", Error: err.Error()})
	}
	agg.summaryFiles = written
}

// summaryBaseDir is the directory the "total" subdirectory is created under:
// the resolved output directory, or the input's directory when no output was
// specified.
func (e *Engine) summaryBaseDir() string {
	if e.opts.OutputPath != "" {
		if abs, err := filepath.Abs(e.opts.OutputPath); err == nil {
			if isDir(abs) {
				return abs
			}
			return filepath.Dir(abs)
		}
	}
	if isDir(e.opts.InputPath) {
		return e.opts.InputPath
	}
	return filepath.Dir(e.opts.InputPath)
}

func (e *Engine) updateStatus(path string, status Status, message string, duration time.Duration) {
	if err := e.hooks.OnFileStatusUpdate(path, status, message, duration); err != nil {
		e.logger.Warn("OnFileStatusUpdate hook failed",
			slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (e *Engine) finish(agg *runAggregator, startTime time.Time, discovered int, fatal bool) Report {
	report := agg.report(e, startTime, discovered, fatal)
	e.logger.Info("Run finished",
		slog.String("runId", e.runID),
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("processed", report.Summary.ProcessedCount),
		slog.Int("skipped", report.Summary.SkippedCount),
		slog.Int("resumed", report.Summary.ResumedCount),
		slog.Int("unreadable", report.Summary.UnreadableCount),
		slog.Int("errors", report.Summary.ErrorCount),
		slog.Bool("fatal", report.Summary.FatalErrorOccurred))
	if hookErr := e.hooks.OnRunComplete(report); hookErr != nil {
		e.logger.Warn("OnRunComplete hook failed", slog.String("error", hookErr.Error()))
	}
	return report
}

// runAggregator accumulates per-file results. Processing is single-threaded
// and the accumulator is append-only with a single writer, so no locking is
// required.
type runAggregator struct {
	processed    []FileInfo
	skipped      []SkippedInfo
	errs         []ErrorInfo
	payloads     []record.Record
	resumedCount int
	unreadable   int
	summaryFiles []string
}

func newRunAggregator() *runAggregator {
	return &runAggregator{}
}

func (a *runAggregator) addProcessed(info FileInfo)   { a.processed = append(a.processed, info) }
func (a *runAggregator) addSkipped(info SkippedInfo)  { a.skipped = append(a.skipped, info) }
func (a *runAggregator) addError(info ErrorInfo)      { a.errs = append(a.errs, info) }
func (a *runAggregator) addPayload(rec record.Record) { a.payloads = append(a.payloads, rec) }

func (a *runAggregator) addResumed(rec record.Record) {
	a.payloads = append(a.payloads, rec)
	a.resumedCount++
}

func (a *runAggregator) addUnreadable(info SkippedInfo) {
	a.skipped = append(a.skipped, info)
	a.unreadable++
}

func (a *runAggregator) report(e *Engine, startTime time.Time, discovered int, fatal bool) Report {
	return Report{
		Summary: ReportSummary{
			RunID:              e.runID,
			Pipeline:           e.pipe.Name(),
			InputPath:          e.opts.InputPath,
			OutputPath:         e.opts.OutputPath,
			ConfigFilePath:     e.opts.ConfigFilePath,
			DiscoveredCount:    discovered,
			ProcessedCount:     len(a.processed),
			SkippedCount:       len(a.skipped),
			ResumedCount:       a.resumedCount,
			UnreadableCount:    a.unreadable,
			ErrorCount:         len(a.errs),
			FatalErrorOccurred: fatal,
			DurationSeconds:    time.Since(startTime).Seconds(),
			Timestamp:          time.Now().UTC(),
			SchemaVersion:      ReportSchemaVersion,
		},
		ProcessedFiles: a.processed,
		SkippedFiles:   a.skipped,
		Errors:         a.errs,
		SummaryFiles:   a.summaryFiles,
	}
}
