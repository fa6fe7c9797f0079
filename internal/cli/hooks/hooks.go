// Package hooks bridges pipeline engine events to the CLI's presentation
// layer: the Bubble Tea TUI, the progress bar, or plain logging.
package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/docuforge/doc-pipeline/pkg/pipeline"
)

// --- TUI message structs ---

// FileDiscoveredMsg signals that an input file passed the discovery filter.
type FileDiscoveredMsg struct{ Path string }

// FileStatusUpdateMsg signals a change in a file's processing status.
type FileStatusUpdateMsg struct {
	Path     string
	Status   pipeline.Status
	Message  string
	Duration time.Duration
}

// RunCompleteMsg signals the completion of the entire run.
type RunCompleteMsg struct{ Report pipeline.Report }

// CLIHooks implements the pipeline.Hooks interface, bridging engine events to
// the CLI's UI layer (TUI, logger, progress bar).
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	progressBar    ProgressBar
	mu             sync.Mutex // Protects progressBar
}

// TUIProgram is the interface needed to interact with the Bubble Tea program.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar is the interface needed to interact with the progress bar.
type ProgressBar interface {
	Add(num int) error
	Describe(description string)
	Close() error
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg tea.Msg) {}

// NoOpProgressBar provides a default null implementation.
type NoOpProgressBar struct{}

// Add implements ProgressBar.
func (n *NoOpProgressBar) Add(num int) error { return nil }

// Describe implements ProgressBar.
func (n *NoOpProgressBar) Describe(description string) {}

// Close implements ProgressBar.
func (n *NoOpProgressBar) Close() error { return nil }

// NewCLIHooks creates a new CLIHooks instance. Pass nil for tuiProgram or
// progressBar if not applicable; NoOp versions are substituted.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram, progBar ProgressBar) pipeline.Hooks {
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	if progBar == nil {
		progBar = &NoOpProgressBar{}
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		progressBar:    progBar,
	}
}

// OnFileDiscovered handles the event when an input file passes discovery.
func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileDiscoveredMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("File discovered", "path", path)
	}
	return nil
}

// OnFileStatusUpdate handles events when a file's processing status changes.
func (h *CLIHooks) OnFileStatusUpdate(path string, status pipeline.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileStatusUpdateMsg{
			Path:     path,
			Status:   status,
			Message:  message,
			Duration: duration,
		})
		return nil
	}

	if h.verboseEnabled {
		logLevel := slog.LevelDebug
		logMsg := "File status updated"
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			logKey := "message"
			if status == pipeline.StatusFailed {
				logKey = "error"
			}
			attrs = append(attrs, slog.String(logKey, message))
		}

		switch status {
		case pipeline.StatusSuccess, pipeline.StatusSkipped, pipeline.StatusResumed:
			logLevel = slog.LevelInfo
		case pipeline.StatusFailed:
			logLevel = slog.LevelError
			logMsg = "File processing failed"
		}
		h.logger.Log(nil, logLevel, logMsg, attrs...)
		return nil
	}

	// Progress bar mode (non-verbose TTY).
	h.mu.Lock()
	defer h.mu.Unlock()

	isFinalState := status == pipeline.StatusSuccess ||
		status == pipeline.StatusFailed ||
		status == pipeline.StatusSkipped ||
		status == pipeline.StatusResumed

	if isFinalState {
		_ = h.progressBar.Add(1)
	}
	if status == pipeline.StatusFailed {
		h.logger.Error("File processing failed", "path", path, "error", message)
	}

	return nil
}

// OnRunComplete sends the final report to the TUI or finalizes the progress
// bar. The text summary itself is printed by the CLI layer.
func (h *CLIHooks) OnRunComplete(report pipeline.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}
	h.mu.Lock()
	_ = h.progressBar.Close()
	h.mu.Unlock()
	// Newline after the bar so the summary does not overlap the prompt.
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	return nil
}
