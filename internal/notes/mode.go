// Package notes turns a subject's stored files into model-ready prompts and
// turns raw model output back into well-formed answers.
//
// The package has three parts:
//   - Assembler builds the bounded, deterministically ordered context text.
//   - BuildPrompt renders the per-mode instruction template.
//   - ValidateResponse parses and coerces the model's JSON output.
//
// Everything except Assembler.Assemble is a pure function.
package notes

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the prompt template and the expected response schema.
type Mode string

const (
	ModeAnswer    Mode = "answer"
	ModeSummarize Mode = "summarize"
	ModePractice  Mode = "practice"
)

// ErrUnknownMode is returned for a mode outside the closed set above.
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode maps a client-supplied string to a Mode (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAnswer, ModeSummarize, ModePractice:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// IsStudy reports whether m is one of the study-set modes.
func (m Mode) IsStudy() bool { return m == ModeSummarize || m == ModePractice }
