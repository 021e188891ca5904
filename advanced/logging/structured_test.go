package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type bufferOutput struct {
	buf bytes.Buffer
}

func (b *bufferOutput) Write(entry *LogEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	b.buf.Write(encoded)
	b.buf.WriteByte('\n')
	return nil
}

func TestLevelGating(t *testing.T) {
	out := &bufferOutput{}
	logger := NewStructuredLogger(Config{Level: WARN, Outputs: []Output{out}})

	logger.Info("should be filtered out")
	if out.buf.Len() != 0 {
		t.Fatalf("expected INFO below WARN to be filtered, got %q", out.buf.String())
	}

	logger.Error("should pass through")
	if !strings.Contains(out.buf.String(), "should pass through") {
		t.Fatalf("expected ERROR entry to be written, got %q", out.buf.String())
	}
}

func TestWithMetadataIncludesFields(t *testing.T) {
	out := &bufferOutput{}
	logger := NewStructuredLogger(Config{Level: DEBUG, Outputs: []Output{out}})

	logger.ErrorWithMetadata("deadlock detected", map[string]interface{}{"sink": "stderr"})

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(out.buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected valid JSON line, got error %v", err)
	}
	if entry.Metadata["sink"] != "stderr" {
		t.Fatalf("expected metadata sink=stderr, got %+v", entry.Metadata)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var logger *StructuredLogger
	logger.Info("must not panic")
	logger.ErrorWithMetadata("must not panic", nil)
	if logger.WithComponent("x") != nil {
		t.Fatal("expected WithComponent on a nil logger to return nil")
	}
}

func TestWithComponentTagsEntries(t *testing.T) {
	out := &bufferOutput{}
	logger := NewStructuredLogger(Config{Level: DEBUG, Component: "manager", Outputs: []Output{out}})
	child := logger.WithComponent("registry")
	child.Info("hello")

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(out.buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected valid JSON line, got error %v", err)
	}
	if entry.Component != "registry" {
		t.Fatalf("expected component %q, got %q", "registry", entry.Component)
	}
}
