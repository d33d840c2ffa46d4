// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Info("directive applied", TraceSetKey, "acme", DirectiveKey, "d-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["msg"] != "directive applied" {
		t.Errorf("msg = %v, want %q", entry["msg"], "directive applied")
	}
	if entry[TraceSetKey] != "acme" {
		t.Errorf("%s = %v, want %q", TraceSetKey, entry[TraceSetKey], "acme")
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatText, Output: &buf})

	logger.Info("probe registered", ProbeKey, "p-1")

	out := buf.String()
	if !strings.Contains(out, "probe registered") || !strings.Contains(out, "probe_id=p-1") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatJSON, Output: &buf})

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn message missing")
	}
}

func TestLevelVar(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	logger := New(&Config{Level: "warn", Format: FormatJSON, Output: &buf, LevelVar: lv})

	logger.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatal("debug message logged at warn level")
	}

	// Runtime level change takes effect without rebuilding the logger.
	lv.Set(slog.LevelDebug)
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("debug message missing after level change")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOGPROBE_DEBUG", "")
	t.Setenv("LOGPROBE_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_SOURCE", "")

	cfg := FromEnv()
	if cfg.Level != "error" {
		t.Errorf("Level = %q, want %q", cfg.Level, "error")
	}
	if cfg.Format != FormatText {
		t.Errorf("Format = %q, want %q", cfg.Format, FormatText)
	}

	t.Setenv("LOGPROBE_DEBUG", "1")
	cfg = FromEnv()
	if cfg.Level != "debug" || !cfg.AddSource {
		t.Errorf("LOGPROBE_DEBUG should force debug level with source, got %+v", cfg)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(New(&Config{Format: FormatJSON, Output: &buf}), "reconciler")
	logger.Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["component"] != "reconciler" {
		t.Errorf("component = %v, want reconciler", entry["component"])
	}
}
