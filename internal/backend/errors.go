// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"errors"
	"strconv"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Status  int // HTTP status, 0 when no response was received
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg += " (HTTP " + strconv.Itoa(e.Status) + ")"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same type, so errors.Is works against
// the sentinels even when the error carries a status or cause.
func (e *ClientError) Is(target error) bool {
	var t *ClientError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnavailable
	ErrTypeTimeout
	ErrTypeNotFound
	ErrTypeServer
	ErrTypeInvalidResponse
	ErrTypeMissingProject
	ErrTypeEmptyContent
	ErrTypeInvalidInput
)

// Sentinel errors for easy checking.
var (
	ErrUnavailable     = &ClientError{Type: ErrTypeUnavailable, Message: "backend is not reachable"}
	ErrTimeout         = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNotFound        = &ClientError{Type: ErrTypeNotFound, Message: "not found"}
	ErrServer          = &ClientError{Type: ErrTypeServer, Message: "backend error"}
	ErrInvalidResponse = &ClientError{Type: ErrTypeInvalidResponse, Message: "invalid response"}
	ErrMissingProject  = &ClientError{Type: ErrTypeMissingProject, Message: "project id is required"}
	ErrEmptyContent    = &ClientError{Type: ErrTypeEmptyContent, Message: "content is empty"}
	ErrInvalidInput    = &ClientError{Type: ErrTypeInvalidInput, Message: "invalid input"}
)

// invalid returns an ErrInvalidInput carrying msg.
func invalid(msg string) error {
	return &ClientError{Type: ErrTypeInvalidInput, Message: msg}
}

// IsNoop reports whether err means the call was skipped for missing input
// rather than failing.
func IsNoop(err error) bool {
	return errors.Is(err, ErrMissingProject) || errors.Is(err, ErrEmptyContent)
}
