package framework

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureTelemetry struct {
	events []Event
}

func (c *captureTelemetry) Emit(e Event) { c.events = append(c.events, e) }

func TestMultiplexTelemetrySkipsNilSinks(t *testing.T) {
	a, b := &captureTelemetry{}, &captureTelemetry{}
	mux := MultiplexTelemetry{Sinks: []Telemetry{a, nil, b}}
	mux.Emit(Event{Type: EventSearchPassStart, Module: "calc"})
	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "calc", b.events[0].Module)
}

func TestJSONFileTelemetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	sink, err := NewJSONFileTelemetry(path)
	require.NoError(t, err)
	sink.Emit(Event{Type: EventSearchPassFinish, Panel: "api", Message: "add", Metadata: map[string]interface{}{"matches": 2}})
	sink.Emit(Event{Type: EventSourceLoad, Module: "calc"})
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	// Emitting after close is dropped.
	sink.Emit(Event{Type: EventIndexBuild})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.Len(t, events, 2)
	assert.Equal(t, EventSearchPassFinish, events[0].Type)
	assert.Equal(t, "api", events[0].Panel)
	assert.EqualValues(t, 2, events[0].Metadata["matches"])
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, "calc", events[1].Module)
}

func TestLoggerTelemetry(t *testing.T) {
	var buf bytes.Buffer
	LoggerTelemetry{Logger: log.New(&buf, "", 0)}.Emit(Event{Type: EventSearchPassCancel, Module: "calc", Panel: "cli", Message: "ad"})
	assert.Contains(t, buf.String(), "[search_pass_cancel] module=calc panel=cli")
	assert.Contains(t, buf.String(), "msg=ad")
	NopTelemetry{}.Emit(Event{})
}
