package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/tool"
)

// stageSpec describes one external-tool stage of a per-file pipeline.
type stageSpec struct {
	Name string
	Tool string
	Args []string
	// ExpectedOutput, when non-empty, is the file the tool is asked to
	// write. If it is absent after the invocation the fallback locator is
	// consulted. Empty means the stage result is the tool's stdout.
	ExpectedOutput string
	// StagingDir and FallbackSuffix drive the first tier of the fallback
	// search; DefaultOutputName drives the working-directory tier.
	StagingDir        string
	FallbackSuffix    string
	DefaultOutputName string
}

// stageRunner composes tool invocations with fallback output discovery. One
// runner is shared by all stages of a run; it holds no per-file state.
type stageRunner struct {
	invoker tool.Invoker
	opts    *Options
	logger  *slog.Logger
}

func newStageRunner(opts *Options, loggerHandler slog.Handler) *stageRunner {
	return &stageRunner{
		invoker: opts.Invoker,
		opts:    opts,
		logger:  slog.New(loggerHandler).With(slog.String("component", "stage")),
	}
}

// run executes one stage: invoke the tool, verify the declared output exists
// (routing through the fallback locator on a miss), and return captured
// stdout. All failures are scoped to the current file.
func (s *stageRunner) run(ctx context.Context, spec stageSpec) (string, error) {
	start := time.Now()
	s.logger.Debug("Stage starting",
		slog.String("stage", spec.Name),
		slog.String("tool", spec.Tool),
		slog.Int("args", len(spec.Args)))

	res, err := s.invoker.Invoke(ctx, tool.Invocation{
		Tool:        spec.Tool,
		Args:        spec.Args,
		Timeout:     s.opts.ToolTimeout,
		Interactive: s.opts.Interactive,
		WorkDir:     s.opts.WorkDir,
	})
	if err != nil {
		excerpt := strings.TrimSpace(res.Stderr)
		if excerpt == "" {
			excerpt = strings.TrimSpace(res.Stdout)
		}
		if len(excerpt) > maxPreviewBytes {
			excerpt = excerpt[:maxPreviewBytes] + "... (truncated)"
		}
		s.logger.Error("Stage tool invocation failed",
			slog.String("stage", spec.Name),
			slog.String("tool", spec.Tool),
			slog.String("error", err.Error()),
			slog.String("output_excerpt", excerpt))
		if excerpt != "" {
			return "", fmt.Errorf("%w: stage %q: %v (tool output: %s)", ErrStageFailure, spec.Name, err, excerpt)
		}
		return "", fmt.Errorf("%w: stage %q: %v", ErrStageFailure, spec.Name, err)
	}

	if spec.ExpectedOutput != "" && !fileExists(spec.ExpectedOutput) {
		s.logger.Debug("Declared stage output missing, consulting fallback locator",
			slog.String("stage", spec.Name), slog.String("expected", spec.ExpectedOutput))
		locErr := LocateArtifact(spec.StagingDir, spec.FallbackSuffix, s.workDir(),
			spec.DefaultOutputName, spec.ExpectedOutput, s.logger.Handler())
		if locErr != nil {
			if errors.Is(locErr, ErrArtifactNotFound) {
				return "", fmt.Errorf("%w: stage %q: %v", ErrStageFailure, spec.Name, locErr)
			}
			return "", locErr
		}
	}

	s.logger.Debug("Stage complete",
		slog.String("stage", spec.Name),
		slog.Duration("duration", time.Since(start)))
	return res.Stdout, nil
}

func (s *stageRunner) workDir() string {
	return s.opts.WorkDir
}

// expandArgs substitutes the given placeholders in an argument template.
func expandArgs(args []string, placeholders map[string]string) []string {
	oldnew := make([]string, 0, len(placeholders)*2)
	for k, v := range placeholders {
		oldnew = append(oldnew, k, v)
	}
	replacer := strings.NewReplacer(oldnew...)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = replacer.Replace(a)
	}
	return out
}
