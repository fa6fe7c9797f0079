// Package config loads and validates the CLI configuration from defaults,
// config file, environment variables and flags, producing the single
// pipeline.Options value the run is built from.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/docuforge/doc-pipeline/pkg/pipeline"
	"github.com/docuforge/doc-pipeline/pkg/pipeline/aggregate"
	"github.com/docuforge/doc-pipeline/pkg/pipeline/schema"
)

const (
	EnvPrefix         = "DOCPIPELINE"
	DefaultConfigName = "doc-pipeline"
)

// LoadAndValidate loads configuration from all sources (defaults, file, env,
// flags), validates the merged configuration, derives the final values and
// sets up the logger. Returns the populated Options struct or an error.
func LoadAndValidate(cfgFile, pipelineName, appVersion string, verbose bool, flags *pflag.FlagSet) (pipeline.Options, *slog.Logger, error) {
	var opts pipeline.Options
	v := viper.New()

	// Temporary basic logger for early loading errors.
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			configFileUsed := cfgFile
			if configFileUsed == "" {
				configFileUsed = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", configFileUsed), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", configFileUsed, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Bind only the flags defined in root.go; viper keys that differ from the
	// flag names are aliased below.
	flagKeys := []string{
		"input", "output", "verbose", "overwrite", "no-tui",
		"interactive", "format", "report-format", "timeout", "allow-tool",
	}
	for _, key := range flagKeys {
		flag := flags.Lookup(key)
		if flag == nil {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", key))
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", key), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", key, err)
		}
	}
	v.RegisterAlias("reportFormat", "report-format")
	v.RegisterAlias("toolTimeoutSeconds", "timeout")
	v.RegisterAlias("allowedTools", "allow-tool")

	opts.AppVersion = appVersion
	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}
	opts.PipelineName = pipelineName

	// Explicit flag values for core paths take absolute precedence over
	// anything unmarshalled from files or env.
	if flags.Changed("input") {
		if inputVal, _ := flags.GetString("input"); inputVal != "" {
			opts.InputPath = inputVal
		}
	}
	if flags.Changed("output") {
		if outputVal, _ := flags.GetString("output"); outputVal != "" {
			opts.OutputPath = outputVal
		}
	}
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("overwrite") {
		opts.Overwrite, _ = flags.GetBool("overwrite")
	}
	if flags.Changed("interactive") {
		opts.Interactive, _ = flags.GetBool("interactive")
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if err := validateAndDeriveOptions(&opts, logger, flags); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("pipeline", opts.PipelineName),
		slog.Bool("verbose", opts.Verbose),
		slog.String("logLevel", logLevel.String()),
	)

	return opts, logger, nil
}

// setDefaults establishes the default values for configuration options.
func setDefaults(v *viper.Viper) {
	// --- Behavior & control ---
	v.SetDefault("overwrite", false)
	v.SetDefault("verbose", false)
	v.SetDefault("tuiEnabled", true)
	v.SetDefault("interactive", false)

	// --- Tool invocation ---
	v.SetDefault("allowedTools", []string{})
	v.SetDefault("toolTimeoutSeconds", int(pipeline.DefaultToolTimeout/time.Second))

	// --- Output & reporting ---
	v.SetDefault("format", pipeline.DefaultSummaryFormat)
	v.SetDefault("reportFormat", string(pipeline.DefaultReportFormat))

	// --- text pipeline ---
	v.SetDefault("text.tool", pipeline.DefaultExtractTool)
	v.SetDefault("text.args", []string{"{input}", "-o", "{output}"})
	v.SetDefault("text.defaultOutputName", "output.txt")
	v.SetDefault("text.extensions", []string{".pdf", ".docx", ".pptx", ".xlsx", ".html"})
	v.SetDefault("text.suffix", ".txt")

	// --- receipt pipeline ---
	v.SetDefault("receipt.extractTool", pipeline.DefaultExtractTool)
	v.SetDefault("receipt.extractArgs", []string{"{input}", "-o", "{output}"})
	v.SetDefault("receipt.extractDefaultOutputName", "output.txt")
	v.SetDefault("receipt.structureTool", pipeline.DefaultStructureTool)
	v.SetDefault("receipt.structureArgs", []string{"{prompt}"})
	v.SetDefault("receipt.prompt",
		"Extract the receipt data from the following text as JSON with the keys "+
			"merchant, date, total, currency, category and fields (an object with any "+
			"additional line items). Text of {file}:\n\n{text}")
	v.SetDefault("receipt.discriminant", "category")
	v.SetDefault("receipt.extensions", []string{".pdf", ".jpg", ".jpeg", ".png"})
	v.SetDefault("receipt.suffix", ".receipt.json")

	// --- contract pipeline ---
	v.SetDefault("contract.extractTool", pipeline.DefaultExtractTool)
	v.SetDefault("contract.extractArgs", []string{"{input}", "-o", "{output}"})
	v.SetDefault("contract.extractDefaultOutputName", "output.txt")
	v.SetDefault("contract.structureTool", pipeline.DefaultStructureTool)
	v.SetDefault("contract.structureArgs", []string{"{prompt}"})
	v.SetDefault("contract.prompt",
		"Review the following contract and answer as JSON with the keys "+
			"contract_type, parties, effective_date, termination_clause, risks "+
			"(array of notable risk descriptions) and fields (an object with any "+
			"additional findings). Text of {file}:\n\n{text}")
	v.SetDefault("contract.discriminant", "contract_type")
	v.SetDefault("contract.extensions", []string{".pdf", ".docx"})
	v.SetDefault("contract.suffix", ".review.json")

	// --- transcode pipeline ---
	v.SetDefault("transcode.tool", pipeline.DefaultTranscodeTool)
	v.SetDefault("transcode.args", []string{"-nostdin", "-y", "-i", "{input}", "{output}"})
	v.SetDefault("transcode.defaultOutputName", "")
	v.SetDefault("transcode.extensions", []string{".mp4", ".mov", ".mkv", ".wav", ".m4a"})
	v.SetDefault("transcode.targetExtension", ".mp3")
}

// validateAndDeriveOptions performs semantic validation on the populated
// Options struct and calculates derived fields. It wraps errors with
// pipeline.ErrConfigValidation.
func validateAndDeriveOptions(opts *pipeline.Options, logger *slog.Logger, flags *pflag.FlagSet) error {
	if opts.InputPath == "" {
		err := fmt.Errorf("%w: input path is required (-i, --input)", pipeline.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "InputPath"))
		return err
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute input path '%s': %w", pipeline.ErrConfigValidation, opts.InputPath, err)
		logger.Error(err.Error(), slog.String("key", "InputPath"), slog.String("value", opts.InputPath))
		return err
	}
	opts.InputPath = absInput
	if _, statErr := os.Stat(opts.InputPath); statErr != nil {
		if os.IsNotExist(statErr) {
			err = fmt.Errorf("%w: input path '%s' does not exist", pipeline.ErrConfigValidation, opts.InputPath)
		} else {
			err = fmt.Errorf("%w: cannot access input path '%s': %w", pipeline.ErrConfigValidation, opts.InputPath, statErr)
		}
		logger.Error(err.Error(), slog.String("key", "InputPath"), slog.String("value", opts.InputPath))
		return err
	}
	logger.Debug("Validated input path", slog.String("path", opts.InputPath))

	// The output path stays as given; existence and directory semantics are
	// checked by the engine, which knows whether the run is a batch.
	if opts.OutputPath != "" {
		absOutput, absErr := filepath.Abs(opts.OutputPath)
		if absErr != nil {
			err = fmt.Errorf("%w: cannot resolve absolute output path '%s': %w", pipeline.ErrConfigValidation, opts.OutputPath, absErr)
			logger.Error(err.Error(), slog.String("key", "OutputPath"), slog.String("value", opts.OutputPath))
			return err
		}
		opts.OutputPath = absOutput
	}

	if !opts.SummaryFormat.Valid() {
		err = fmt.Errorf("%w: invalid value '%s' for key 'format' (flag --format). Allowed: [%s %s]",
			pipeline.ErrConfigValidation, opts.SummaryFormat, aggregate.FormatJSON, aggregate.FormatCSV)
		logger.Error(err.Error(), slog.String("key", "format"), slog.String("value", string(opts.SummaryFormat)))
		return err
	}
	if opts.ReportFormat != pipeline.ReportFormatText && opts.ReportFormat != pipeline.ReportFormatJSON {
		err = fmt.Errorf("%w: invalid value '%s' for key 'reportFormat' (flag --report-format). Allowed: [%s %s]",
			pipeline.ErrConfigValidation, opts.ReportFormat, pipeline.ReportFormatText, pipeline.ReportFormatJSON)
		logger.Error(err.Error(), slog.String("key", "reportFormat"), slog.String("value", string(opts.ReportFormat)))
		return err
	}

	if opts.ToolTimeoutSeconds < 0 {
		err = fmt.Errorf("%w: invalid value '%d' for key 'toolTimeoutSeconds' (flag --timeout). Must be >= 0",
			pipeline.ErrConfigValidation, opts.ToolTimeoutSeconds)
		logger.Error(err.Error(), slog.String("key", "toolTimeoutSeconds"), slog.Int("value", opts.ToolTimeoutSeconds))
		return err
	}
	if opts.ToolTimeoutSeconds > 0 {
		opts.ToolTimeout = time.Duration(opts.ToolTimeoutSeconds) * time.Second
	} else {
		opts.ToolTimeout = pipeline.DefaultToolTimeout
	}
	opts.ProbeTimeout = pipeline.DefaultProbeTimeout

	// Embedded schemas for the structured pipelines. A config file cannot
	// override these; relaxing validation means editing the schema source.
	opts.Receipt.Schema = schema.ReceiptSchema
	opts.Contract.Schema = schema.ContractSchema

	// Verbose logging and the TUI fight over the terminal; verbose wins.
	if opts.Verbose {
		if opts.TuiEnabled && !flags.Changed("no-tui") {
			logger.Debug("Verbose mode enabled, TUI explicitly disabled")
		}
		opts.TuiEnabled = false
	}

	logger.Debug("Final derived settings validated",
		slog.Duration("toolTimeout", opts.ToolTimeout),
		slog.String("summaryFormat", string(opts.SummaryFormat)),
		slog.String("reportFormat", string(opts.ReportFormat)),
		slog.Int("allowedTools", len(opts.AllowedTools)),
		slog.Bool("tuiEnabledEffective", opts.TuiEnabled),
	)

	return nil
}
