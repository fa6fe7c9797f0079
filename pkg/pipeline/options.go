package pipeline

import (
	"log/slog"
	"time"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/aggregate"
	"github.com/docuforge/doc-pipeline/pkg/pipeline/tool"
)

// Hooks defines callbacks for status updates during a run. Processing is
// strictly sequential, so implementations are called from a single goroutine,
// but the TUI bridge forwards them across a channel regardless.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of Hooks.
type NoOpHooks struct{}

// OnFileDiscovered implements Hooks. It performs no action.
func (h *NoOpHooks) OnFileDiscovered(path string) error { return nil }

// OnFileStatusUpdate implements Hooks. It performs no action.
func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}

// OnRunComplete implements Hooks. It performs no action.
func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// TextConfig parameterizes the plain text-extraction pipeline.
type TextConfig struct {
	Tool string `mapstructure:"tool"`
	// Args is the argument template for the extractor; "{input}" and
	// "{output}" placeholders are substituted per file.
	Args []string `mapstructure:"args"`
	// DefaultOutputName is the tool's known default output file name in the
	// working directory, searched by the fallback locator.
	DefaultOutputName string   `mapstructure:"defaultOutputName"`
	Extensions        []string `mapstructure:"extensions"`
	Suffix            string   `mapstructure:"suffix"`
}

// StructuredConfig parameterizes the two-stage extract-then-structure
// pipelines (receipts, contract review).
type StructuredConfig struct {
	ExtractTool string `mapstructure:"extractTool"`
	// ExtractArgs is the argument template for the extraction stage;
	// "{input}" and "{output}" placeholders are substituted per file.
	ExtractArgs []string `mapstructure:"extractArgs"`
	// ExtractDefaultOutputName is the extractor's default output file name
	// in the working directory, searched by the fallback locator.
	ExtractDefaultOutputName string `mapstructure:"extractDefaultOutputName"`
	StructureTool            string `mapstructure:"structureTool"`
	// StructureArgs is the argument template for the structuring stage; the
	// "{prompt}" placeholder is substituted with the rendered prompt.
	StructureArgs []string `mapstructure:"structureArgs"`
	// Prompt is the instruction template sent to the structuring tool;
	// "{text}" and "{file}" placeholders are substituted per file.
	Prompt string `mapstructure:"prompt"`
	// Discriminant names the record field used to group summary files.
	Discriminant string   `mapstructure:"discriminant"`
	Extensions   []string `mapstructure:"extensions"`
	Suffix       string   `mapstructure:"suffix"`
	// Schema holds the JSON Schema the parsed record is validated against.
	// Empty disables validation.
	Schema string `mapstructure:"-"`
}

// MediaConfig parameterizes the media transcoding pipeline.
type MediaConfig struct {
	Tool string `mapstructure:"tool"`
	// Args is the argument template for the transcoder; "{input}" and
	// "{output}" placeholders are substituted per file.
	Args              []string `mapstructure:"args"`
	DefaultOutputName string   `mapstructure:"defaultOutputName"`
	Extensions        []string `mapstructure:"extensions"`
	// TargetExtension is the output container extension (e.g. ".mp3").
	TargetExtension string `mapstructure:"targetExtension"`
}

// Options holds all configuration for one run. It is constructed once at the
// boundary (CLI/config layer), validated by NewEngine, and threaded through
// every component; nothing reads configuration ad hoc mid-pipeline.
type Options struct {
	// --- Core paths ---
	InputPath  string `mapstructure:"input"`  // Required: file or top-level directory
	OutputPath string `mapstructure:"output"` // Optional: file or directory; empty places outputs beside inputs

	// --- Behavior & control ---
	PipelineName string `mapstructure:"pipeline"`
	Overwrite    bool   `mapstructure:"overwrite"`
	Verbose      bool   `mapstructure:"verbose"`
	TuiEnabled   bool   `mapstructure:"tuiEnabled"`
	// Interactive relaxes tool timeouts and lets tools prompt a human. Only
	// honored when the run is not pinned to a fully automated configuration.
	Interactive bool `mapstructure:"interactive"`

	// --- Tool invocation ---
	AllowedTools       []string      `mapstructure:"allowedTools"`
	ToolTimeout        time.Duration `mapstructure:"-"` // derived from toolTimeoutSeconds
	ToolTimeoutSeconds int           `mapstructure:"toolTimeoutSeconds"`
	ProbeTimeout       time.Duration `mapstructure:"-"`
	// WorkDir is the working directory searched by the fallback locator;
	// empty means the process working directory.
	WorkDir string `mapstructure:"-"`

	// --- Output & reporting ---
	SummaryFormat aggregate.Format `mapstructure:"format"`
	ReportFormat  ReportFormat     `mapstructure:"reportFormat"`

	// --- Pipeline parameterization ---
	Text     TextConfig       `mapstructure:"text"`
	Receipt  StructuredConfig `mapstructure:"receipt"`
	Contract StructuredConfig `mapstructure:"contract"`
	Media    MediaConfig      `mapstructure:"transcode"`

	// --- Application info ---
	AppVersion     string `mapstructure:"-"`
	ConfigFilePath string `mapstructure:"-"`

	// --- Injected dependencies ---
	EventHooks Hooks          `mapstructure:"-"` // Optional: NoOpHooks when nil
	Logger     slog.Handler   `mapstructure:"-"` // Required
	Invoker    tool.Invoker   `mapstructure:"-"` // Required: external process execution
	Pipeline   Pipeline       `mapstructure:"-"` // Optional: overrides PipelineName lookup (testing)
	Clock      func() time.Time `mapstructure:"-"` // Optional: extraction timestamps (testing)
}
