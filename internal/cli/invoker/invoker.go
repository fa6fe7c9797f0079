// Package invoker provides the os/exec implementation of the tool.Invoker
// interface used by the pipeline engine to drive external CLI tools.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/docuforge/doc-pipeline/pkg/pipeline"
	"github.com/docuforge/doc-pipeline/pkg/pipeline/tool"
)

const (
	// maxCaptureBytes limits stdout/stderr capture to prevent OOM from a rogue
	// or misconfigured tool that streams its payload to the console.
	maxCaptureBytes = 10 * 1024 * 1024

	// maxLogOutputBytes limits the size of stderr excerpts attached to logs.
	maxLogOutputBytes = 1024
)

// execInvoker implements tool.Invoker using os/exec. It enforces the per-call
// allow-list policy before anything is spawned.
type execInvoker struct {
	allowedTools map[string]struct{}
	logger       *slog.Logger
}

// New creates a tool invoker executing commands as external processes.
// allowedTools is the allow-list policy: nil or empty permits every tool.
func New(allowedTools []string, loggerHandler slog.Handler) tool.Invoker {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	var allowed map[string]struct{}
	if len(allowedTools) > 0 {
		allowed = make(map[string]struct{}, len(allowedTools))
		for _, name := range allowedTools {
			allowed[strings.TrimSpace(name)] = struct{}{}
		}
	}
	return &execInvoker{
		allowedTools: allowed,
		logger:       slog.New(loggerHandler).With(slog.String("component", "invoker")),
	}
}

// Invoke runs the tool and classifies failures into the tool package's error
// variables. The allow-list check runs first so a blocked tool never spawns.
func (r *execInvoker) Invoke(ctx context.Context, inv tool.Invocation) (tool.Result, error) {
	logArgs := []any{
		slog.String("tool", inv.Tool),
		slog.Bool("interactive", inv.Interactive),
	}

	if inv.Tool == "" {
		err := tool.Errorf("tool name cannot be empty")
		r.logger.Error("Invocation rejected", append(logArgs, slog.Any("error", err))...)
		return tool.Result{}, err
	}

	if r.allowedTools != nil {
		if _, ok := r.allowedTools[inv.Tool]; !ok {
			r.logger.Error("Tool rejected by allow-list policy; add it to the allowed tools to run it",
				logArgs...)
			return tool.Result{}, tool.ErrBlocked
		}
	}

	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = pipeline.DefaultToolTimeout
	}
	if inv.Interactive {
		timeout = pipeline.DefaultInteractiveTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, inv.Tool, inv.Args...)
	if inv.WorkDir != "" {
		cmd.Dir = inv.WorkDir
	}
	if inv.Interactive {
		cmd.Stdin = os.Stdin
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &boundedWriter{w: &stdoutBuf, limit: maxCaptureBytes}
	cmd.Stderr = &boundedWriter{w: &stderrBuf, limit: maxCaptureBytes}

	r.logger.Debug("Tool process starting",
		append(logArgs, slog.String("args", strings.Join(inv.Args, " ")))...)

	runErr := cmd.Run()

	result := tool.Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	stderrExcerpt := strings.TrimSpace(result.Stderr)
	if len(stderrExcerpt) > maxLogOutputBytes {
		stderrExcerpt = stderrExcerpt[:maxLogOutputBytes] + "... (truncated)"
	}
	if stderrExcerpt != "" {
		logArgs = append(logArgs, slog.String("tool_stderr", stderrExcerpt))
	}

	if runErr == nil {
		r.logger.Debug("Tool finished successfully", logArgs...)
		return result, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.logger.Error("Tool execution timed out",
			append(logArgs, slog.Duration("timeout", timeout))...)
		return result, tool.WrapError(tool.ErrTimeout,
			"tool %q exceeded %s timeout", inv.Tool, timeout)
	}
	if ctx.Err() != nil {
		r.logger.Info("Tool execution cancelled", logArgs...)
		return result, tool.WrapError(tool.ErrTimeout,
			"tool %q cancelled: %v", inv.Tool, ctx.Err())
	}

	if errors.Is(runErr, exec.ErrNotFound) {
		r.logger.Error("Tool executable not found on PATH", logArgs...)
		return result, tool.ErrNotFound
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		r.logger.Error("Tool exited with failure",
			append(logArgs, slog.Int("exitCode", exitErr.ExitCode()))...)
		return result, tool.Errorf("tool %q exited with code %d", inv.Tool, exitErr.ExitCode())
	}

	r.logger.Error("Tool execution failed", append(logArgs, slog.Any("error", runErr))...)
	return result, tool.Errorf("tool %q: %v", inv.Tool, runErr)
}

// boundedWriter caps how many bytes reach the underlying writer; overflow is
// silently discarded so the child process never blocks on a full pipe.
type boundedWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (b *boundedWriter) Write(p []byte) (int, error) {
	remaining := b.limit - b.written
	if remaining <= 0 {
		return len(p), nil
	}
	chunk := p
	if len(chunk) > remaining {
		chunk = chunk[:remaining]
	}
	n, err := b.w.Write(chunk)
	b.written += n
	if err != nil {
		return n, err
	}
	return len(p), nil
}
