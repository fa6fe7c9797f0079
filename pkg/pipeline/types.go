package pipeline

// Status defines the possible processing states of a file during a run.
type Status string

// Constants representing the defined file processing statuses.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	StatusResumed    Status = "resumed"
)

// RunMode distinguishes single-file from batch (directory) processing.
type RunMode string

const (
	RunModeSingle RunMode = "single"
	RunModeBatch  RunMode = "batch"
)

// ReportFormat defines the format for the final summary report printed to
// standard output when the TUI is disabled.
type ReportFormat string

const (
	ReportFormatText ReportFormat = "text"
	ReportFormatJSON ReportFormat = "json"
)
