package engine

import (
	"errors"
	"fmt"
	"strings"
)

// maxInstructionLen caps caller-supplied instruction text.
const maxInstructionLen = 1000

// ErrUnsafeInstructions is returned when custom instructions look like an
// attempt to steer the model away from its system prompt.
var ErrUnsafeInstructions = errors.New("custom instructions contain a potentially unsafe pattern")

// injectionPatterns are lowercase markers of prompt-injection attempts.
// Matching is substring over the lowered input.
var injectionPatterns = []string{
	"ignore previous",
	"ignore above",
	"disregard",
	"system prompt",
	"forget your instructions",
	"new instructions",
	"you are now",
	"act as",
	"pretend to be",
	"override",
	"bypass",
}

// ScreenInstructions rejects custom instructions that exceed the length cap
// or contain an injection marker. Empty input is fine.
func ScreenInstructions(s string) error {
	if s == "" {
		return nil
	}
	if len(s) > maxInstructionLen {
		return fmt.Errorf("custom instructions exceed %d characters", maxInstructionLen)
	}
	lower := strings.ToLower(s)
	for _, p := range injectionPatterns {
		if strings.Contains(lower, p) {
			return ErrUnsafeInstructions
		}
	}
	return nil
}
