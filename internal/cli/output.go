// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - File output for ask responses.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeranaias/termchat/internal/finalize"
	"github.com/jeranaias/termchat/internal/util"
)

// WriteOutputFile saves a finalized response to disk and returns the
// path written. When the requested path carries no extension, one is
// picked from the code-block classification: a pure code block maps its
// language tag, everything else gets ".txt".
func WriteOutputFile(path string, result finalize.FileResult) (string, error) {
	if filepath.Ext(path) == "" {
		path += result.Extension()
	}

	text := result.Text
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	if err := util.AtomicWriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
