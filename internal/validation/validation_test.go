package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateMessage_EmptyAndWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tab", "\t"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateMessage(tc.input, 100)
			if !errors.Is(err, ErrMessageEmpty) {
				t.Errorf("error = %v, want ErrMessageEmpty", err)
			}
		})
	}
}

func TestValidateMessage_Trims(t *testing.T) {
	got, err := ValidateMessage("  how hot is Dubai today?  ", 100)
	if err != nil {
		t.Fatalf("ValidateMessage() error = %v", err)
	}
	if got != "how hot is Dubai today?" {
		t.Errorf("ValidateMessage() = %q", got)
	}
}

func TestValidateMessage_TooLong(t *testing.T) {
	_, err := ValidateMessage(strings.Repeat("a", 101), 100)
	if !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("error = %v, want ErrMessageTooLong", err)
	}
}

// Length is counted in runes so multi-byte text gets the full budget.
func TestValidateMessage_RuneLength(t *testing.T) {
	msg := strings.Repeat("م", 100)
	if _, err := ValidateMessage(msg, 100); err != nil {
		t.Errorf("ValidateMessage() error = %v for 100-rune message", err)
	}
}

func TestValidateMessage_NoLimit(t *testing.T) {
	if _, err := ValidateMessage(strings.Repeat("a", 100000), 0); err != nil {
		t.Errorf("ValidateMessage() error = %v with limit disabled", err)
	}
}
