package pipeline

import (
	"errors"

	"github.com/docuforge/doc-pipeline/pkg/pipeline/record"
)

// These errors represent the categories of failure a run can encounter.
// Callers can check against them using errors.Is.
//
// Run-aborting errors (returned by NewEngine or before any file is processed):
// ErrConfigValidation, ErrDiscovery, ErrValidation and the tool availability
// errors defined in the tool subpackage. Everything else is scoped to a single
// file; the batch continues and the failure is surfaced in the Report.

var (
	// ErrConfigValidation indicates that the provided Options failed validation
	// checks performed when constructing the Engine (nil logger, empty paths,
	// unknown pipeline name). Always fatal.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrDiscovery indicates the input root could not be read at all. This is
	// distinct from "zero matching files", which is not an error.
	ErrDiscovery = errors.New("input discovery failed")

	// ErrValidation indicates the output path has the wrong shape for the run
	// mode (e.g. an existing regular file used as a batch output directory),
	// or a required directory could not be created.
	ErrValidation = errors.New("invalid output path")

	// ErrStageFailure indicates one stage of a per-file pipeline failed:
	// nonzero tool exit, empty payload, unparsable record or unlocatable
	// artifact. Scoped to one file; the batch continues.
	ErrStageFailure = errors.New("pipeline stage failed")

	// ErrEmptyPayload indicates an extraction stage produced no text.
	// errors.Is(err, ErrStageFailure) is also true for wrapped occurrences.
	ErrEmptyPayload = errors.New("extracted payload is empty")

	// ErrParseFailure indicates a structuring stage returned text that did not
	// contain a parsable record. The offending payload is only ever logged as
	// a bounded preview. Aliases the record package's sentinel so parse
	// failures surfaced by Process match it via errors.Is.
	ErrParseFailure = record.ErrParse

	// ErrArtifactNotFound indicates a stage's declared output file was missing
	// after invocation and the fallback locator found no candidate either.
	ErrArtifactNotFound = errors.New("could not locate extracted artifact")

	// ErrSchemaValidation indicates a parsed record did not conform to the
	// pipeline's record schema.
	ErrSchemaValidation = errors.New("record failed schema validation")

	// ErrPersistFailure indicates the final output file could not be written.
	// Scoped to one file.
	ErrPersistFailure = errors.New("failed to write output file")

	// ErrReadFailed indicates a source or intermediate file could not be read.
	ErrReadFailed = errors.New("failed to read file")
)
