package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"", log.InfoLevel},
		{"info", log.InfoLevel},
		{"DEBUG", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud): expected error")
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Level = log.WarnLevel
	l := New(&buf, opts)

	l.Info("hidden")
	l.Error("shown", "op", "delete")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "op=delete") {
		t.Errorf("error line missing fields: %q", out)
	}
	if !strings.Contains(out, "todo") {
		t.Errorf("prefix missing: %q", out)
	}
}

func TestFileWritesToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "todo.log")
	l, closer, err := File(path, "debug")
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	l.Debug("request", "status", 200)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "status=200") {
		t.Errorf("log file: got %q", b)
	}
}

func TestFileEmptyPathDiscards(t *testing.T) {
	l, closer, err := File("", "debug")
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if l.GetLevel() != log.DebugLevel {
		t.Errorf("level: got %v, want debug", l.GetLevel())
	}
	l.Info("nowhere")
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
