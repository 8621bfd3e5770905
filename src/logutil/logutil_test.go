package logutil

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello", "Hello"},
		{"newlines", "a\nb\r", "a\\nb\\n"},
		{"tab", "a\tb", "a\\tb"},
		{"control", "a\x07b", "a?b"},
		{"unicode", "สวัสดี", "สวัสดี"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.in); got != tt.want {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeForLogTruncates(t *testing.T) {
	got := SanitizeForLog(strings.Repeat("x", 250))
	if len(got) != maxLogLength+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated text, got len=%d", len(got))
	}
}

func TestSetupLevel(t *testing.T) {
	Setup(Options{Level: "debug"})
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %v", zerolog.GlobalLevel())
	}
	Setup(Options{Level: "nonsense"})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected fallback to info, got %v", zerolog.GlobalLevel())
	}
}

func TestFileLoggingRotation(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	big := make([]byte, maxSizeBytes+1)
	if err := os.WriteFile(logFileName, big, 0o600); err != nil {
		t.Fatal(err)
	}

	Setup(Options{EnableFileLogging: true})
	l := Component("test")
	l.Info().Msg("after rotation")

	if _, err := os.Stat(archiveName(1)); err != nil {
		t.Fatalf("expected archive .1 after rotation: %v", err)
	}
	data, err := os.ReadFile(logFileName)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"component":"test"`) {
		t.Errorf("expected component field in log line, got %q", data)
	}
	Setup(Options{})
}
