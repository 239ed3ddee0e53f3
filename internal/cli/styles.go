// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Centralized styling for all termchat CLI output.
//
// All commands use these shared styles instead of defining their own.
// Colors are automatically disabled for non-TTY output and NO_COLOR.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// init configures lipgloss color profile based on terminal capabilities.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// PromptStyle is used for the interactive chat prompt.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// WelcomeStyle is used for the chat welcome banner.
	WelcomeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")) // Purple

	// InfoStyle is used for informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")) // Blue

	// WarningStyle is used for warnings and advisory notices.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	// ErrorStyle is used for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red

	// DimStyle is used for secondary information and hints.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	// ReasoningStyle dims the model's reasoning channel so the answer
	// stands out.
	ReasoningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Italic(true)

	// SuccessStyle is used for success confirmations.
	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")) // Green
)
