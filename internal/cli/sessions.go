// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Session management command handler for the termchat CLI.
//
// Command: sessions
// Short:   List, export, and clear stored sessions
//
// Examples:
//   termchat sessions list      List stored sessions
//   termchat sessions export    Export this terminal's session as Markdown
//   termchat sessions clear     Clear this terminal's session
package cli

import (
	"fmt"

	"github.com/jeranaias/termchat/internal/config"
	"github.com/jeranaias/termchat/internal/session"
)

// HandleSessionsCommand handles the "sessions" command.
func HandleSessionsCommand(args Args) error {
	sessionsDir, err := config.SessionsDir()
	if err != nil {
		return err
	}
	store, err := session.NewStore(sessionsDir)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "list", "ls":
		metas, err := store.List()
		if err != nil {
			return err
		}
		fmt.Print(session.FormatSessionList(metas))
		return nil

	case "export":
		handle, err := store.Open(TerminalContextID())
		if err != nil {
			return err
		}
		fmt.Print(handle.ExportMarkdown())
		return nil

	case "clear":
		handle, err := store.Open(TerminalContextID())
		if err != nil {
			return err
		}
		if err := handle.Clear(); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("Session cleared"))
		return nil

	case "delete":
		if len(args.Raw) < 2 {
			return &UsageError{Message: "sessions delete requires a context id (see: termchat sessions list)"}
		}
		if err := store.Delete(args.Raw[1]); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("Session deleted"))
		return nil

	default:
		return &UsageError{Message: fmt.Sprintf("unknown sessions subcommand %q (list, export, clear, delete)", args.Subcommand)}
	}
}
