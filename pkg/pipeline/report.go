package pipeline

import "time"

// Report summarizes the result of a single run.
type Report struct {
	Summary        ReportSummary `json:"summary"`
	ProcessedFiles []FileInfo    `json:"processedFiles"`
	SkippedFiles   []SkippedInfo `json:"skippedFiles"`
	Errors         []ErrorInfo   `json:"errors"`
	SummaryFiles   []string      `json:"summaryFiles,omitempty"`
}

// ReportSummary contains the aggregated statistics for a run.
type ReportSummary struct {
	RunID           string    `json:"runId"`
	Pipeline        string    `json:"pipeline"`
	InputPath       string    `json:"inputPath"`
	OutputPath      string    `json:"outputPath,omitempty"`
	ConfigFilePath  string    `json:"configFilePath,omitempty"`
	DiscoveredCount int       `json:"discoveredCount"`
	ProcessedCount  int       `json:"processedCount"`
	SkippedCount    int       `json:"skippedCount"`
	// ResumedCount counts skipped files whose existing output was re-read
	// and folded into the grouped summaries.
	ResumedCount int `json:"resumedCount"`
	// UnreadableCount counts skipped files whose existing output could not
	// be parsed; reported but never fatal.
	UnreadableCount    int       `json:"unreadableCount"`
	ErrorCount         int       `json:"errorCount"`
	FatalErrorOccurred bool      `json:"fatalError"`
	DurationSeconds    float64   `json:"durationSeconds"`
	Timestamp          time.Time `json:"timestamp"`
	SchemaVersion      string    `json:"schemaVersion,omitempty"`
}

// FileInfo details a single successfully processed file.
type FileInfo struct {
	Path       string `json:"path"`
	OutputPath string `json:"outputPath"`
	DurationMs int64  `json:"durationMs"`
}

// SkippedInfo details a file that was intentionally not processed.
type SkippedInfo struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

// ErrorInfo details a per-file failure. Per-file failures never abort the
// batch; Error carries only bounded excerpts of tool output.
type ErrorInfo struct {
	Path  string `json:"path"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error"`
}
