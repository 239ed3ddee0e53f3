// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// termchat - streaming LLM chat for the terminal.
package main

import (
	"github.com/jeranaias/termchat/internal/cli"
)

func main() {
	cmd, args := cli.Parse()
	cli.Run(cmd, args)
}
