// Package services defines interfaces for interactive services.
package services

import (
	"errors"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// ErrCancelled is returned when the operator aborts the release prompt
var ErrCancelled = errors.New("release cancelled")

// ReleasePrompter collects values for workflow inputs from an operator
type ReleasePrompter interface {
	// AskInputs prompts once per input, pre-filled with defaults. Validation of the
	// collected values happens afterwards; the caller re-prompts on failure.
	AskInputs(inputs []entities.WorkflowInput, defaults map[string]string) (map[string]string, error)

	// ShowError reports a validation failure before the next prompt
	ShowError(err error)
}
