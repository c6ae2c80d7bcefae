package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	la, err := NewWithWriter("json", slog.LevelInfo, &a)
	if err != nil {
		t.Fatal(err)
	}
	lb, err := NewWithWriter("text", slog.LevelDebug, &b)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	l := Tee(la, nil, lb).With("runId", "r1")
	l.Debug(ctx, "hidden from json")
	l.Infof(ctx, "hello %s", "world")

	lines := strings.Split(strings.TrimSpace(a.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("json logger got %d lines, want 1: %q", len(lines), a.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "hello world" || rec["runId"] != "r1" {
		t.Errorf("unexpected record: %v", rec)
	}
	if !strings.Contains(b.String(), "hidden from json") || !strings.Contains(b.String(), "runId=r1") {
		t.Errorf("text logger output missing records: %q", b.String())
	}
}

func TestNewWithWriterUnsupported(t *testing.T) {
	if _, err := NewWithWriter("xml", slog.LevelInfo, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unsupported format")
	}
}
