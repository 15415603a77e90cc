package framework

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType categorizes telemetry events.
type EventType string

const (
	EventIndexBuild       EventType = "index_build"
	EventSearchPassStart  EventType = "search_pass_start"
	EventSearchPassFinish EventType = "search_pass_finish"
	EventSearchPassCancel EventType = "search_pass_cancel"
	EventSearchPassClear  EventType = "search_pass_clear"
	EventSourceLoad       EventType = "source_load"
	EventSourceLoadError  EventType = "source_load_error"
)

// Event captures structured telemetry data.
type Event struct {
	Type      EventType              `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Panel     string                 `json:"panel,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Telemetry receives events from indexing, searching, and source loading.
type Telemetry interface {
	Emit(event Event)
}

// MultiplexTelemetry broadcasts events to multiple sinks.
type MultiplexTelemetry struct {
	Sinks []Telemetry
}

// Emit forwards the event to all registered sinks.
func (m MultiplexTelemetry) Emit(event Event) {
	for _, s := range m.Sinks {
		if s != nil {
			s.Emit(event)
		}
	}
}

// NopTelemetry drops every event.
type NopTelemetry struct{}

// Emit does nothing.
func (NopTelemetry) Emit(Event) {}

// JSONFileTelemetry writes events as newline-delimited JSON to a file.
type JSONFileTelemetry struct {
	path string
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewJSONFileTelemetry opens (or creates) the log file and its directory.
func NewJSONFileTelemetry(path string) (*JSONFileTelemetry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONFileTelemetry{
		path: path,
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes the JSON record.
func (j *JSONFileTelemetry) Emit(event Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if j.enc != nil {
		_ = j.enc.Encode(event)
	}
}

// Close releases the file handle.
func (j *JSONFileTelemetry) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		j.enc = nil
		return err
	}
	return nil
}

// LoggerTelemetry emits events via the standard logger.
type LoggerTelemetry struct {
	Logger *log.Logger
}

// Emit logs the event.
func (t LoggerTelemetry) Emit(event Event) {
	logger := t.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[%s] module=%s panel=%s meta=%v msg=%s\n", event.Type, event.Module, event.Panel, event.Metadata, event.Message)
}
