// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Exit code mapping for CLI command failures.
package cli

import (
	"errors"

	"github.com/jeranaias/termchat/internal/engine"
)

// Exit codes, stable for scripting.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitUnreachable = 3
	ExitRejected    = 4
)

// UsageError marks a command invoked with bad arguments.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}

	var unreachable *engine.UnreachableError
	if errors.As(err, &unreachable) {
		return ExitUnreachable
	}

	var rejected *engine.RequestError
	if errors.As(err, &rejected) {
		return ExitRejected
	}

	return ExitError
}
