// Package cli wires the validated options to the pipeline engine and the
// chosen presentation mode (TUI, progress bar, or plain logging), and prints
// the final report.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/docuforge/doc-pipeline/internal/cli/hooks"
	"github.com/docuforge/doc-pipeline/internal/cli/invoker"
	"github.com/docuforge/doc-pipeline/internal/cli/ui"
	"github.com/docuforge/doc-pipeline/pkg/pipeline"
)

// Run executes one pipeline run with the presentation mode derived from the
// options and the terminal: a Bubble Tea TUI on a TTY, a progress bar when
// the TUI is disabled but a TTY is present, plain logging otherwise.
func Run(ctx context.Context, opts pipeline.Options, logger *slog.Logger) error {
	opts.Invoker = invoker.New(opts.AllowedTools, opts.Logger)

	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	tuiActive := opts.TuiEnabled && isTTY && !opts.Verbose

	var report pipeline.Report
	var runErr error

	if tuiActive {
		model := ui.NewModel(opts.AppVersion, opts.PipelineName)
		program := tea.NewProgram(&model, tea.WithContext(ctx), tea.WithOutput(os.Stderr))
		opts.EventHooks = hooks.NewCLIHooks(logger, true, false, program, nil)

		engine, err := pipeline.NewEngine(opts)
		if err != nil {
			return err
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			report, runErr = engine.Run(ctx)
			program.Quit()
		}()
		if _, teaErr := program.Run(); teaErr != nil {
			logger.Warn("Terminal UI exited with error", slog.Any("error", teaErr))
		}
		<-done
	} else {
		var bar hooks.ProgressBar
		if isTTY && !opts.Verbose {
			bar = progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(fmt.Sprintf("doc-pipeline %s", opts.PipelineName)),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionShowCount(),
			)
		}
		opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, bar)

		engine, err := pipeline.NewEngine(opts)
		if err != nil {
			return err
		}
		report, runErr = engine.Run(ctx)
	}

	if printErr := printReport(report, opts.ReportFormat); printErr != nil {
		logger.Error("Failed to print final report", slog.Any("error", printErr))
	}
	return runErr
}

// printReport writes the final report to stdout in the requested format.
func printReport(report pipeline.Report, format pipeline.ReportFormat) error {
	if format == pipeline.ReportFormatJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("cannot marshal report: %w", err)
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}

	s := report.Summary
	fmt.Fprintf(os.Stdout, "\nPipeline:   %s\n", s.Pipeline)
	fmt.Fprintf(os.Stdout, "Input:      %s\n", s.InputPath)
	if s.OutputPath != "" {
		fmt.Fprintf(os.Stdout, "Output:     %s\n", s.OutputPath)
	}
	fmt.Fprintf(os.Stdout, "Discovered: %d\n", s.DiscoveredCount)
	fmt.Fprintf(os.Stdout, "Processed:  %d\n", s.ProcessedCount)
	fmt.Fprintf(os.Stdout, "Skipped:    %d (resumed: %d, unreadable: %d)\n",
		s.SkippedCount, s.ResumedCount, s.UnreadableCount)
	fmt.Fprintf(os.Stdout, "Errors:     %d\n", s.ErrorCount)
	fmt.Fprintf(os.Stdout, "Duration:   %.2fs\n", s.DurationSeconds)

	if len(report.Errors) > 0 {
		fmt.Fprintln(os.Stdout, "\nFailed files:")
		for _, e := range report.Errors {
			if e.Stage != "" {
				fmt.Fprintf(os.Stdout, "  %s (%s): %s\n", e.Path, e.Stage, e.Error)
			} else {
				fmt.Fprintf(os.Stdout, "  %s: %s\n", e.Path, e.Error)
			}
		}
	}
	if len(report.SummaryFiles) > 0 {
		fmt.Fprintln(os.Stdout, "\nSummary files:")
		for _, path := range report.SummaryFiles {
			fmt.Fprintf(os.Stdout, "  %s\n", path)
		}
	}
	if s.FatalErrorOccurred {
		fmt.Fprintln(os.Stdout, "\nRun halted before completion.")
	}
	return nil
}
