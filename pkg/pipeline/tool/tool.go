// Package tool defines the contract between the pipeline engine and the
// external command-line tools it drives (text/OCR extractors, structured-data
// extractors, media transcoders). Tools are opaque processes; the engine only
// sees an Invocation going in and a Result (or classified error) coming out.
package tool

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error variables for invocation failure classification. Implementations MUST
// return errors wrapping one of these so callers can dispatch with errors.Is.
// The classification order is: blocked by policy, executable not found, then
// everything else.
var (
	// ErrUnavailable is the umbrella for both not-found and policy-blocked
	// tools. errors.Is(err, ErrUnavailable) is true for ErrNotFound and
	// ErrBlocked. A run aborts before processing any file when the
	// availability probe reports it.
	ErrUnavailable = errors.New("external tool unavailable")

	// ErrBlocked indicates the invocation was rejected by the tool allow-list
	// policy. Surfaced distinctly so the caller can instruct the user to
	// extend the allow-list rather than install anything.
	ErrBlocked = fmt.Errorf("%w: blocked by allow-list policy", ErrUnavailable)

	// ErrNotFound indicates the executable does not exist on PATH.
	ErrNotFound = fmt.Errorf("%w: executable not found", ErrUnavailable)

	// ErrExecution indicates the tool ran but failed: nonzero exit, runtime
	// error, or I/O failure talking to the process.
	ErrExecution = errors.New("tool execution failed")

	// ErrTimeout indicates the tool exceeded its invocation timeout.
	// errors.Is(err, ErrExecution) is also true.
	ErrTimeout = errors.New("tool execution timed out")
)

// Invocation describes a single external tool run.
type Invocation struct {
	// Tool is the executable name or path. Executed directly with Args,
	// never through a shell.
	Tool string
	// Args are passed verbatim as argv[1:].
	Args []string
	// Timeout bounds the invocation. Zero means the implementation default.
	Timeout time.Duration
	// Interactive relaxes the timeout substantially and connects the tool to
	// the caller's stdin so it may prompt a human. Only used when the run is
	// not pinned to a fully automated configuration.
	Interactive bool
	// WorkDir is the working directory for the process; empty means inherit.
	WorkDir string
}

// Result carries the captured output of a completed invocation. Stdout and
// Stderr are capped by the implementation to keep memory bounded.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Invoker runs external tools. Implementations are responsible for enforcing
// the timeout, capturing bounded stdout/stderr, and classifying failures into
// the error variables above.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (Result, error)
}

// Probe checks that a tool is reachable before any real work, so a batch
// fails fast with a clear diagnostic instead of mid-run. It invokes the tool
// with "-h" under a short timeout. A nonzero exit still proves the executable
// exists; only not-found and policy-blocked count as unavailable.
func Probe(ctx context.Context, inv Invoker, toolName string, timeout time.Duration) error {
	_, err := inv.Invoke(ctx, Invocation{Tool: toolName, Args: []string{"-h"}, Timeout: timeout})
	if err != nil && errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("availability probe for %q: %w", toolName, err)
	}
	return nil
}

// Errorf returns a formatted error wrapping ErrExecution. Helper for
// implementations to keep base error wrapping consistent.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrExecution}, args...)...)
}

// WrapError wraps a specific invocation error (timeout, not-found) together
// with ErrExecution context so both errors.Is checks hold.
func WrapError(specific error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s: %w", ErrExecution, msg, specific)
}
