// Package testutil provides mock implementations for the interfaces defined
// in the doc-pipeline core library (pkg/pipeline and subpackages). Configure
// expectations using testify/mock methods (e.g. .On("Invoke", ...).Return(...)).
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/docuforge/doc-pipeline/pkg/pipeline"
	"github.com/docuforge/doc-pipeline/pkg/pipeline/record"
	"github.com/docuforge/doc-pipeline/pkg/pipeline/tool"
)

// MockInvoker provides a mock implementation of the tool.Invoker interface.
type MockInvoker struct {
	mock.Mock
}

// Invoke mocks the Invoke method.
func (m *MockInvoker) Invoke(ctx context.Context, inv tool.Invocation) (tool.Result, error) {
	args := m.Called(ctx, inv)
	result, _ := args.Get(0).(tool.Result)
	return result, args.Error(1)
}

// FuncInvoker adapts a plain function to the tool.Invoker interface, for
// tests that want behavior (e.g. writing an output file) rather than canned
// return values.
type FuncInvoker func(ctx context.Context, inv tool.Invocation) (tool.Result, error)

// Invoke implements tool.Invoker.
func (f FuncInvoker) Invoke(ctx context.Context, inv tool.Invocation) (tool.Result, error) {
	return f(ctx, inv)
}

// MockPipeline provides a mock implementation of the pipeline.Pipeline
// strategy interface.
type MockPipeline struct {
	mock.Mock
}

// Name mocks the Name method.
func (m *MockPipeline) Name() string {
	args := m.Called()
	return args.String(0)
}

// Extensions mocks the Extensions method.
func (m *MockPipeline) Extensions() []string {
	args := m.Called()
	exts, _ := args.Get(0).([]string)
	return exts
}

// Suffix mocks the Suffix method.
func (m *MockPipeline) Suffix() string {
	args := m.Called()
	return args.String(0)
}

// Tools mocks the Tools method.
func (m *MockPipeline) Tools() []string {
	args := m.Called()
	tools, _ := args.Get(0).([]string)
	return tools
}

// Aggregatable mocks the Aggregatable method.
func (m *MockPipeline) Aggregatable() bool {
	args := m.Called()
	return args.Bool(0)
}

// DiscriminantKey mocks the DiscriminantKey method.
func (m *MockPipeline) DiscriminantKey() string {
	args := m.Called()
	return args.String(0)
}

// Process mocks the Process method.
func (m *MockPipeline) Process(ctx context.Context, inputPath, outputPath string) (record.Record, error) {
	args := m.Called(ctx, inputPath, outputPath)
	rec, _ := args.Get(0).(record.Record)
	return rec, args.Error(1)
}

// StatusEvent is one OnFileStatusUpdate call captured by CapturingHooks.
type StatusEvent struct {
	Path     string
	Status   pipeline.Status
	Message  string
	Duration time.Duration
}

// CapturingHooks records every hook call for later assertions.
type CapturingHooks struct {
	mu         sync.Mutex
	Discovered []string
	Statuses   []StatusEvent
	Reports    []pipeline.Report
}

// OnFileDiscovered implements pipeline.Hooks.
func (h *CapturingHooks) OnFileDiscovered(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Discovered = append(h.Discovered, path)
	return nil
}

// OnFileStatusUpdate implements pipeline.Hooks.
func (h *CapturingHooks) OnFileStatusUpdate(path string, status pipeline.Status, message string, duration time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Statuses = append(h.Statuses, StatusEvent{Path: path, Status: status, Message: message, Duration: duration})
	return nil
}

// OnRunComplete implements pipeline.Hooks.
func (h *CapturingHooks) OnRunComplete(report pipeline.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Reports = append(h.Reports, report)
	return nil
}

// StatusesFor returns the captured status events for one path, in order.
func (h *CapturingHooks) StatusesFor(path string) []StatusEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []StatusEvent
	for _, ev := range h.Statuses {
		if ev.Path == path {
			out = append(out, ev)
		}
	}
	return out
}
