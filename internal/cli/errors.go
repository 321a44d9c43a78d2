// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/config"
	"github.com/inkwell-studio/inkwell/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "check", "config")
	Action  string // Action being performed (e.g., "analyze", "set")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is returned for bad arguments that cobra cannot catch.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ConfigError wraps a failure to load or validate the configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// errNoProject is returned by commands that cannot run without a project.
var errNoProject = &UsageError{Message: "no project set (use --project, INKWELL_PROJECT or editor.project_id)"}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps err to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var cfgErr *ConfigError
	var verrs config.ValidateErrors
	var verr config.ValidationError
	switch {
	case errors.As(err, &usage), errors.Is(err, backend.ErrMissingProject), errors.Is(err, backend.ErrInvalidInput):
		return ExitUsageError
	case errors.As(err, &cfgErr), errors.As(err, &verrs), errors.As(err, &verr):
		return ExitConfigError
	case errors.Is(err, backend.ErrTimeout):
		return ExitTimeoutError
	case errors.Is(err, backend.ErrUnavailable):
		return ExitNetworkError
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, storage.ErrDraftNotFound):
		return ExitNotFoundError
	}
	return ExitGeneralError
}
