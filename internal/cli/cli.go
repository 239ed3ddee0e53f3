// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for termchat.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdAsk Command = iota
	CmdChat
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet    bool
	Verbose  bool
	Provider string
	Model    string

	// Command-specific
	Query      string
	File       string
	Output     string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `termchat - streaming LLM chat for the terminal

Termchat talks to any OpenAI-compatible chat-completion endpoint, renders
the answer as it streams in, and keeps a per-terminal conversation history.

Usage:
  termchat ask "question"    Ask a single question
  termchat chat              Interactive chat (default)
  termchat sessions [subcommand]  Session management
  termchat config [show|path]     Configuration
  termchat version           Show version
  termchat help              Show this help

Ask Command:
  termchat ask "question"
    -f, --file FILE     Include file content with the question
    -o, --output FILE   Save the response to a file; a pure code-block
                        answer picks its extension from the language tag
    -p, --provider NAME Use a named provider profile for this request
    -m, --model NAME    Override the profile's model

Session Commands:
  termchat sessions list          List stored sessions
  termchat sessions export        Export this terminal's session as Markdown
  termchat sessions clear         Clear this terminal's session

Interactive Commands (during chat):
  /help               Show available commands
  /new                Start a fresh session (new id)
  /clear              Clear history, keep session id
  /history            Show conversation history
  /provider [name]    Show or switch provider
  /export             Print session as Markdown
  /quit               Exit chat
  Ctrl+C              Cancel current generation (keeps partial output)
  Ctrl+D              Exit chat

Global Flags:
  -q, --quiet         Minimal output (suppress advisory notices)
  -v, --verbose       Show stream statistics after each response
  -p, --provider NAME Provider profile to use
  -m, --model NAME    Override the profile's model

Configuration:
  ~/.termchat/config.toml holds provider profiles and engine tuning.
  API keys may be supplied via <PROFILE>_API_KEY or TERMCHAT_API_KEY.

Examples:
  termchat ask "What is a goroutine?"
  termchat ask "Review this:" --file main.go
  termchat ask "Write a quicksort in python" -o sort
  termchat ask -p local "Explain this error"
  termchat chat
  termchat sessions list

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("termchat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	remaining, parsedArgs := parseGlobalFlags(args)

	// No command defaults to interactive chat.
	if len(remaining) == 0 {
		return CmdChat, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "session", "sessions":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdSessions, parsedArgs

	case "config":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown first token: treat the whole line as an ask query.
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		parseAskArgs(&parsedArgs, parsedArgs.Raw)
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "-p", "--provider":
			if i+1 < len(args) {
				i++
				parsedArgs.Provider = args[i]
			}
		case "-m", "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--provider="):
				parsedArgs.Provider = strings.TrimPrefix(arg, "--provider=")
			case strings.HasPrefix(arg, "--model="):
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "-f", "--file":
			if i+1 < len(remaining) {
				i++
				args.File = remaining[i]
			}
		case "-o", "--output":
			if i+1 < len(remaining) {
				i++
				args.Output = remaining[i]
			}
		case "-p", "--provider":
			if i+1 < len(remaining) {
				i++
				args.Provider = remaining[i]
			}
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--file="):
				args.File = strings.TrimPrefix(arg, "--file=")
			case strings.HasPrefix(arg, "--output="):
				args.Output = strings.TrimPrefix(arg, "--output=")
			case strings.HasPrefix(arg, "--provider="):
				args.Provider = strings.TrimPrefix(arg, "--provider=")
			case strings.HasPrefix(arg, "--model="):
				args.Model = strings.TrimPrefix(arg, "--model=")
			case !strings.HasPrefix(arg, "-"):
				query = append(query, arg)
			}
		}
		i++
	}

	args.Query = strings.Join(query, " ")
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// Run dispatches a parsed command and exits on handler failure.
func Run(cmd Command, args Args) {
	var err error
	switch cmd {
	case CmdAsk:
		err = HandleAskCommand(args)
	case CmdChat:
		err = HandleChatCommand(args)
	case CmdSessions:
		err = HandleSessionsCommand(args)
	case CmdConfig:
		err = HandleConfigCommand(args)
	case CmdVersion:
		PrintVersion()
	case CmdHelp:
		PrintUsage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}
