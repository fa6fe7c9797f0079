package pipeline

import "time"

// ReportSchemaVersion identifies the JSON shape of the Report struct.
const ReportSchemaVersion = "1.0"

// Defaults applied by the CLI configuration layer and by NewEngine when a
// zero value is left in Options.
const (
	DefaultProbeTimeout       = 10 * time.Second
	DefaultToolTimeout        = 120 * time.Second
	DefaultInteractiveTimeout = 30 * time.Minute

	DefaultReportFormat = ReportFormatText

	// DefaultSummaryFormat is the serialization used for grouped summary
	// files ("json" or "csv").
	DefaultSummaryFormat = "json"
)

// Default external tools per pipeline. All of them are opaque executables
// reached through the tool.Invoker; nothing here is linked in.
const (
	DefaultExtractTool   = "markitdown"
	DefaultStructureTool = "llm"
	DefaultTranscodeTool = "ffmpeg"
)

// maxPreviewBytes bounds how much of a tool payload is included in logs and
// error messages when parsing fails. Full payloads are never logged.
const maxPreviewBytes = 256
