package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/docuforge/doc-pipeline/internal/cli"
	"github.com/docuforge/doc-pipeline/internal/cli/config"
	"github.com/docuforge/doc-pipeline/pkg/pipeline"
)

var (
	// These are set during build time using -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Flags persistent across commands.
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "doc-pipeline <pipeline> -i <input> [-o <output>]",
	Short: "Runs batch document-transformation pipelines backed by external CLI tools.",
	Long: `doc-pipeline discovers input documents, runs them through a named
transformation pipeline and writes one output file per input, skipping
files whose output already exists so interrupted batches can be re-run.

Pipelines:
  text       Extract plain text from documents.
  receipt    Extract structured receipt data as JSON, with grouped summaries.
  contract   Review contracts into structured JSON findings, with grouped summaries.
  transcode  Transcode media files to a target format.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.NoArgs,
}

// Execute adds all child commands to the root command and runs the CLI.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	// Cobra prints the error and exits non-zero if RunE returns an error.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newPipelineCommand builds the shared RunE wiring for one concrete pipeline.
func newPipelineCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " -i <input> [-o <output>]",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			opts, logger, err := config.LoadAndValidate(cfgFile, name, version, verbose, cmd.Flags())
			if err != nil {
				return err
			}

			// Short delay lets the TUI claim the terminal before the first
			// log line can interleave with it.
			if term.IsTerminal(int(os.Stderr.Fd())) && !verbose && opts.TuiEnabled {
				time.Sleep(100 * time.Millisecond)
			}

			return cli.Run(ctx, opts, logger)
		},
	}
}

// init registers persistent flags and the pipeline subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is search standard locations like ., $HOME/.config/doc-pipeline/)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	rootCmd.PersistentFlags().StringP("input", "i", "", "Required. Input document file or directory.")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file or directory (default: beside each input)")
	_ = rootCmd.MarkPersistentFlagRequired("input")

	rootCmd.PersistentFlags().Bool("overwrite", false, "Reprocess files whose output already exists")
	rootCmd.PersistentFlags().Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")
	rootCmd.PersistentFlags().Bool("interactive", false, "Let tools prompt on stdin and relax the invocation timeout")
	rootCmd.PersistentFlags().String("format", pipeline.DefaultSummaryFormat, `Summary file format ("json", "csv")`)
	rootCmd.PersistentFlags().String("report-format", string(pipeline.DefaultReportFormat), `Final report format ("text", "json")`)
	rootCmd.PersistentFlags().Int("timeout", int(pipeline.DefaultToolTimeout/time.Second), "Per-invocation tool timeout in seconds")
	rootCmd.PersistentFlags().StringSlice("allow-tool", []string{}, "Tool allow-list entry (repeatable; empty list permits all tools)")

	rootCmd.AddCommand(
		newPipelineCommand(pipeline.PipelineText, "Extract plain text from documents."),
		newPipelineCommand(pipeline.PipelineReceipt, "Extract structured receipt data as JSON."),
		newPipelineCommand(pipeline.PipelineContract, "Review contracts into structured JSON findings."),
		newPipelineCommand(pipeline.PipelineTranscode, "Transcode media files to a target format."),
	)
}
