// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package board

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ValidationError{Resource: "action", Field: "id", Reason: "is required"}, `invalid action: field "id" is required`},
		{&DuplicateError{Resource: "plugin", ID: "echo"}, `plugin "echo" is already registered`},
		{&NotFoundError{Resource: "screen", ID: "home"}, `screen "home" not found`},
		{&TimeoutError{ActionID: "echo:run", Timeout: 2 * time.Second}, `action "echo:run" timed out after 2s`},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestExecutionErrorUnwrap(t *testing.T) {
	cause := errors.New("db gone")
	err := fmt.Errorf("running: %w", &ExecutionError{ActionID: "save", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("cause should survive wrapping")
	}

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatal("ExecutionError should be found in chain")
	}
	if execErr.ActionID != "save" {
		t.Errorf("got action id %q", execErr.ActionID)
	}
}
