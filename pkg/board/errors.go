// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package board

import (
	"fmt"
	"time"
)

// ValidationError reports a missing or malformed required field on a
// resource definition. It is returned synchronously by Register calls.
type ValidationError struct {
	// Resource is the kind of resource, e.g. "plugin", "action", "screen".
	Resource string

	// Field is the offending field name.
	Field string

	// Reason describes what is wrong with the field.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: field %q %s", e.Resource, e.Field, e.Reason)
}

// DuplicateError reports an id collision on registration.
type DuplicateError struct {
	Resource string
	ID       string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q is already registered", e.Resource, e.ID)
}

// NotFoundError reports a lookup of an id that was never registered.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// TimeoutError reports an action handler exceeding its configured timeout.
// The handler itself is not forcibly stopped; see Action.Timeout.
type TimeoutError struct {
	ActionID string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("action %q timed out after %s", e.ActionID, e.Timeout)
}

// ExecutionError wraps a failure from an action handler, preserving the
// original cause.
type ExecutionError struct {
	ActionID string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.ActionID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
