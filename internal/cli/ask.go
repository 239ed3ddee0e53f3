// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command handler for the termchat CLI.
//
// Command: ask
// Short:   Ask a single question and stream the answer
//
// Examples:
//   termchat ask "What is a goroutine?"
//   termchat ask "Review this:" --file main.go
//   termchat ask "Write a quicksort in python" -o sort
//   termchat ask -p local "Explain this error"
//
// Flags:
//   -f, --file FILE     Include file content with the question
//   -o, --output FILE   Save the response to a file
//   -p, --provider NAME Provider profile to use
//   -m, --model NAME    Override the profile's model
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jeranaias/termchat/internal/config"
	"github.com/jeranaias/termchat/internal/engine"
	"github.com/jeranaias/termchat/internal/finalize"
	"github.com/jeranaias/termchat/internal/provider"
	"github.com/jeranaias/termchat/internal/session"
)

// HandleAskCommand handles the "ask" command.
func HandleAskCommand(args Args) error {
	if args.Query == "" {
		return &UsageError{Message: "ask requires a question, e.g.: termchat ask \"What is a goroutine?\""}
	}

	env, err := loadEnvironment(args)
	if err != nil {
		return err
	}

	question := args.Query
	if args.File != "" {
		content, err := os.ReadFile(args.File)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args.File, err)
		}
		question = fmt.Sprintf("%s\n\n--- %s ---\n%s", question, filepath.Base(args.File), content)
	}

	// Ctrl+C cancels the stream; the partial output is kept.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	artifact, text, err := env.exchange(ctx, question, stdoutSink())
	if err != nil {
		return suggestSwitch(err)
	}
	fmt.Println()

	if artifact.Cancelled {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("[Cancelled]"))
	}
	if args.Verbose {
		printStats(artifact.Stats)
	}

	if args.Output != "" && text != "" {
		result := finalize.ForFile(text, env.cfg.Finalize.DominantCoverage, env.cfg.Finalize.PureCoverage)
		path, err := WriteOutputFile(args.Output, result)
		if err != nil {
			return err
		}
		if !args.Quiet {
			fmt.Fprintln(os.Stderr, SuccessStyle.Render("Saved to "+path))
		}
	}

	return nil
}

// =============================================================================
// SHARED REQUEST ENVIRONMENT
// =============================================================================

// environment bundles the resolved collaborators one command needs.
type environment struct {
	cfg    *config.Config
	prov   provider.Provider
	handle *session.Handle
	eng    *engine.Engine
	quiet  bool
}

// loadEnvironment loads config, resolves the provider, opens this
// terminal's session, and builds an engine.
func loadEnvironment(args Args) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	prov, err := provider.Resolve(cfg, args.Provider)
	if err != nil {
		return nil, err
	}
	if args.Model != "" {
		prov.Model = args.Model
	}
	if !prov.IsConfigured() {
		return nil, fmt.Errorf("provider %s needs an API key: set %s or add api_key to %s",
			prov.Name, provider.EnvKeyName(prov.Name), configPathHint())
	}

	sessionsDir, err := config.SessionsDir()
	if err != nil {
		return nil, err
	}
	store, err := session.NewStore(sessionsDir)
	if err != nil {
		return nil, err
	}
	handle, err := store.Open(TerminalContextID())
	if err != nil {
		return nil, err
	}

	env := &environment{
		cfg:    cfg,
		prov:   prov,
		handle: handle,
		quiet:  args.Quiet,
	}
	env.eng = engine.New(prov, engine.Options{
		GracePeriod:  cfg.Engine.GracePeriod(),
		ProbeTimeout: cfg.Engine.ProbeTimeout(),
		Status:       env.status,
	})
	return env, nil
}

// status prints advisory lines to stderr, distinct from the content stream.
func (env *environment) status(format string, args ...any) {
	if env.quiet {
		return
	}
	fmt.Fprintln(os.Stderr, DimStyle.Render(fmt.Sprintf(format, args...)))
}

// exchange runs one question/answer round trip: append the user message,
// stream the response, strip reasoning blocks, and persist the assistant
// message. It returns the artifact and the session-persisted text.
//
// Cancellation is not an error: the partial text is displayed, persisted,
// and returned with artifact.Cancelled set.
func (env *environment) exchange(ctx context.Context, question string, sink engine.Sink) (*engine.Artifact, string, error) {
	if err := env.handle.AddUserMessage(question); err != nil {
		return nil, "", err
	}

	artifact, err := env.eng.Run(ctx, env.handle.Messages(), sink)
	if err != nil {
		return nil, "", err
	}

	text, fellBack := finalize.StripReasoning(artifact.Text)
	if fellBack {
		log.Printf("warning: reasoning stripping would have emptied the response; keeping original")
	}

	if text != "" {
		if err := env.handle.AddAssistantMessage(text); err != nil {
			return nil, "", err
		}
	}
	return artifact, text, nil
}

// stdoutSink streams deltas to stdout as they arrive.
func stdoutSink() engine.Sink {
	return func(text string) {
		fmt.Print(text)
	}
}

// suggestSwitch decorates an unreachable-provider error with the command
// that switches providers.
func suggestSwitch(err error) error {
	var unreachable *engine.UnreachableError
	if errors.As(err, &unreachable) {
		fmt.Fprintln(os.Stderr, WarningStyle.Render(
			fmt.Sprintf("Provider %s is unreachable. Try another profile with: termchat -p NAME, or edit %s",
				unreachable.Provider, configPathHint())))
	}
	return err
}

// configPathHint returns the config file path for user-facing messages.
func configPathHint() string {
	path, err := config.ConfigPath()
	if err != nil {
		return "~/.termchat/config.toml"
	}
	return path
}

// printStats shows stream statistics on stderr.
func printStats(stats engine.Stats) {
	first := "n/a"
	if stats.TimeToFirstChunk > 0 {
		first = stats.TimeToFirstChunk.Round(1e6).String()
	}
	fmt.Fprintln(os.Stderr, DimStyle.Render(
		fmt.Sprintf("%d chunks, first in %s, total %s", stats.Chunks, first, stats.Total.Round(1e6))))
}
