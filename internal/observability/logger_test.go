package observability

import (
	"testing"

	"go.uber.org/zap"
)

// TestParseLogLevel verifies that LOG_LEVEL strings map to the expected zap
// levels, including trimming and case-insensitivity, with info as the default.
func TestParseLogLevel(t *testing.T) {
	// name: input string; want: expected atomic level.
	tests := []struct {
		name  string
		input string
		want  zap.AtomicLevel
	}{
		{"debug", "DEBUG", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"debug lowercase", "debug", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"warn padded", "  WARN ", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"error", "ERROR", zap.NewAtomicLevelAt(zap.ErrorLevel)},
		{"empty defaults to info", "", zap.NewAtomicLevelAt(zap.InfoLevel)},
		{"unknown defaults to info", "verbose", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got.Level() != tt.want.Level() {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got.Level(), tt.want.Level())
			}
		})
	}
}

// TestNewLogger verifies that the production logger builds without error.
func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned nil logger")
	}
}
