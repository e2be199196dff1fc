package validation

import (
	"errors"
	"strings"
)

// ErrMessageEmpty is returned when a chat message is empty or whitespace-only after trim.
var ErrMessageEmpty = errors.New("message is required")

// ErrMessageTooLong is returned when a chat message exceeds the maximum length.
var ErrMessageTooLong = errors.New("message too long")

// ValidateMessage trims the input and enforces the maximum length (maxLen in
// runes, 0 disables the check). Returns the trimmed string or an error
// suitable for a 400 INVALID_MESSAGE response. Content is otherwise passed
// through untouched; the completion gateway does its own moderation.
func ValidateMessage(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrMessageEmpty
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return "", ErrMessageTooLong
	}
	return s, nil
}
