// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the termchat CLI.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Examples:
//   termchat chat                    Start interactive chat
//   termchat chat -p local           Chat against the local profile
//   termchat chat -m gpt-4o-mini     Override the profile's model
//
// Interactive Commands (during chat):
//   /help               Show available commands
//   /new                Start a fresh session (new id)
//   /clear              Clear history, keep session id
//   /history            Show conversation history
//   /provider [name]    Show or switch provider
//   /export             Print session as Markdown
//   /quit               Exit chat
//   Ctrl+C              Cancel current generation (keeps partial output)
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/termchat/internal/config"
	"github.com/jeranaias/termchat/internal/engine"
	"github.com/jeranaias/termchat/internal/session"
	"github.com/jeranaias/termchat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatInput provides input history and line editing for interactive chat.
type ChatInput struct {
	line        *liner.State
	historyFile string
}

// NewChatInput creates a ChatInput with history loaded from the config dir.
func NewChatInput() *ChatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	input := &ChatInput{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	input.loadHistory()
	return input
}

func (c *ChatInput) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation.
func (c *ChatInput) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

func (c *ChatInput) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	// 0600: prompts can contain sensitive text.
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatInput) Close() {
	c.saveHistory()
	c.line.Close()
}

// =============================================================================
// STREAM CANCELLATION
// =============================================================================

// cancelGuard hands the in-flight stream's cancel func between the REPL
// loop and the signal goroutine. Both sides touch it concurrently, so
// access goes through the mutex; firing keeps the func in place because
// context cancellation is idempotent and a repeated Ctrl+C must stay a
// no-op rather than read a half-written pointer.
type cancelGuard struct {
	mu sync.Mutex
	fn context.CancelFunc
}

// set installs the cancel func for the current stream; nil clears it.
func (g *cancelGuard) set(fn context.CancelFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fn = fn
}

// fire cancels the current stream, if any.
func (g *cancelGuard) fire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fn != nil {
		g.fn()
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command with full interactive support.
func HandleChatCommand(args Args) error {
	if !IsTTY() {
		return errors.New("chat requires an interactive terminal; use 'termchat ask' for scripted calls")
	}

	env, err := loadEnvironment(args)
	if err != nil {
		return err
	}

	if !args.Quiet {
		printWelcome(env)
	}

	input := NewChatInput()
	defer input.Close()

	// Ctrl+C during a stream cancels that stream only; the REPL keeps
	// running with the partial output preserved.
	var guard cancelGuard
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			guard.fire()
		}
	}()

	for {
		line, err := input.ReadInput(PromptStyle.Render("termchat> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed terminal.
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := handleSlashCommand(line, env, args)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		guard.set(cancel)

		fmt.Println()
		artifact, _, err := env.exchange(ctx, line, stdoutSink())
		guard.set(nil)
		cancel()

		if err != nil {
			// Unreachable providers don't end the chat; the user can
			// switch profiles and continue.
			suggestSwitch(err)
			if !isUnreachable(err) {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			continue
		}

		fmt.Println()
		if artifact.Cancelled {
			fmt.Fprintln(os.Stderr, WarningStyle.Render("[Cancelled]"))
		}
		if args.Verbose {
			printStats(artifact.Stats)
		}
		fmt.Println()
	}
}

func isUnreachable(err error) bool {
	var unreachable *engine.UnreachableError
	return errors.As(err, &unreachable)
}

// printWelcome shows the chat banner.
func printWelcome(env *environment) {
	fmt.Println(WelcomeStyle.Render("termchat " + Version))
	fmt.Println(InfoStyle.Render("Provider: " + env.prov.String()))
	fmt.Println(DimStyle.Render("Type /help for commands, Ctrl+C cancels a response, Ctrl+D exits."))
	fmt.Println()
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const slashHelp = `Commands:
  /help               Show this help
  /new                Start a fresh session (new id)
  /clear              Clear history, keep session id
  /history            Show conversation history
  /provider [name]    Show or switch provider
  /export             Print session as Markdown
  /quit               Exit chat`

// handleSlashCommand executes one interactive command. The returned bool
// is false when the chat loop should end.
func handleSlashCommand(line string, env *environment, args Args) (bool, error) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/help", "/h":
		fmt.Println(InfoStyle.Render(slashHelp))
		return true, nil

	case "/new":
		if err := env.handle.New(); err != nil {
			return true, err
		}
		fmt.Println(SuccessStyle.Render("Started new session " + util.TruncateRunes(env.handle.ID(), 8)))
		return true, nil

	case "/clear", "/c":
		if err := env.handle.Clear(); err != nil {
			return true, err
		}
		fmt.Println(SuccessStyle.Render("History cleared"))
		return true, nil

	case "/history":
		printHistory(env.handle.Messages())
		return true, nil

	case "/provider", "/p":
		if len(fields) < 2 {
			fmt.Println(InfoStyle.Render("Provider: " + env.prov.String()))
			fmt.Println(DimStyle.Render("API key: " + env.prov.KeyFingerprint()))
			return true, nil
		}
		return true, env.switchProvider(fields[1], args)

	case "/export":
		fmt.Println(env.handle.ExportMarkdown())
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// printHistory shows the conversation so far.
func printHistory(msgs []session.Message) {
	if len(msgs) == 0 {
		fmt.Println(DimStyle.Render("No messages yet."))
		return
	}
	for _, msg := range msgs {
		label := "You"
		style := PromptStyle
		switch msg.Role {
		case session.RoleAssistant:
			label = "Assistant"
			style = InfoStyle
		case session.RoleSystem:
			label = "System"
			style = DimStyle
		}
		fmt.Printf("%s %s\n", style.Render(label+":"), util.TruncateRunes(strings.ReplaceAll(msg.Content, "\n", " "), 120))
	}
}

// switchProvider rebuilds the engine against a different profile. The
// session continues: history follows the terminal, not the provider.
func (env *environment) switchProvider(name string, args Args) error {
	swapped := args
	swapped.Provider = name
	swapped.Model = "" // a new profile brings its own model

	next, err := loadEnvironment(swapped)
	if err != nil {
		return err
	}
	env.prov = next.prov
	env.eng = next.eng
	fmt.Println(SuccessStyle.Render("Switched to " + env.prov.String()))
	return nil
}
