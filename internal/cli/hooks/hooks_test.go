package hooks

import (
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuforge/doc-pipeline/pkg/pipeline"
)

type capturingProgram struct {
	msgs []interface{}
}

func (p *capturingProgram) Send(msg tea.Msg) { p.msgs = append(p.msgs, msg) }

type countingBar struct {
	added  int
	closed bool
}

func (b *countingBar) Add(num int) error               { b.added += num; return nil }
func (b *countingBar) Describe(description string) {}
func (b *countingBar) Close() error                    { b.closed = true; return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCLIHooksTUIMode(t *testing.T) {
	program := &capturingProgram{}
	h := NewCLIHooks(testLogger(), true, false, program, nil)

	require.NoError(t, h.OnFileDiscovered("/in/a.pdf"))
	require.NoError(t, h.OnFileStatusUpdate("/in/a.pdf", pipeline.StatusProcessing, "", 0))
	require.NoError(t, h.OnFileStatusUpdate("/in/a.pdf", pipeline.StatusSuccess, "", time.Second))
	require.NoError(t, h.OnRunComplete(pipeline.Report{}))

	require.Len(t, program.msgs, 4)
	assert.IsType(t, FileDiscoveredMsg{}, program.msgs[0])
	assert.IsType(t, FileStatusUpdateMsg{}, program.msgs[1])
	update := program.msgs[2].(FileStatusUpdateMsg)
	assert.Equal(t, pipeline.StatusSuccess, update.Status)
	assert.IsType(t, RunCompleteMsg{}, program.msgs[3])
}

func TestCLIHooksProgressBarMode(t *testing.T) {
	bar := &countingBar{}
	h := NewCLIHooks(testLogger(), false, false, nil, bar)

	require.NoError(t, h.OnFileStatusUpdate("a", pipeline.StatusProcessing, "", 0))
	assert.Equal(t, 0, bar.added, "non-final states do not advance the bar")

	require.NoError(t, h.OnFileStatusUpdate("a", pipeline.StatusSuccess, "", time.Second))
	require.NoError(t, h.OnFileStatusUpdate("b", pipeline.StatusFailed, "boom", 0))
	require.NoError(t, h.OnFileStatusUpdate("c", pipeline.StatusSkipped, "output exists", 0))
	require.NoError(t, h.OnFileStatusUpdate("d", pipeline.StatusResumed, "reused", 0))
	assert.Equal(t, 4, bar.added)

	require.NoError(t, h.OnRunComplete(pipeline.Report{}))
	assert.True(t, bar.closed)
}

func TestCLIHooksNilCollaboratorsAreSafe(t *testing.T) {
	h := NewCLIHooks(testLogger(), false, true, nil, nil)
	assert.NoError(t, h.OnFileDiscovered("a"))
	assert.NoError(t, h.OnFileStatusUpdate("a", pipeline.StatusSuccess, "", time.Second))
	assert.NoError(t, h.OnRunComplete(pipeline.Report{}))
}
