// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration command handler for the termchat CLI.
//
// Command: config
// Short:   Show configuration and write a starter config file
//
// Examples:
//   termchat config show    Show resolved configuration
//   termchat config path    Print the config file path
//   termchat config init    Write a starter config file
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/termchat/internal/config"
	"github.com/jeranaias/termchat/internal/provider"
)

// HandleConfigCommand handles the "config" command.
func HandleConfigCommand(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return showConfig()

	case "path":
		fmt.Println(configPathHint())
		return nil

	case "init":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Default().Save(); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("Wrote " + path))
		return nil

	default:
		return &UsageError{Message: fmt.Sprintf("unknown config subcommand %q (show, path, init)", args.Subcommand)}
	}
}

// showConfig prints the resolved configuration without credentials.
func showConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println(InfoStyle.Render("Config: " + configPathHint()))
	fmt.Println(InfoStyle.Render("Default provider: " + cfg.DefaultProvider))
	fmt.Println()

	for _, profile := range cfg.Providers {
		prov, err := provider.Resolve(cfg, profile.Name)
		if err != nil {
			continue
		}
		marker := "  "
		if profile.Name == cfg.DefaultProvider {
			marker = "* "
		}
		fmt.Println(marker + prov.String())
		// Fingerprint only; the key itself never reaches the terminal.
		fmt.Println(DimStyle.Render("    auth=" + authSummary(prov)))
	}

	fmt.Println()
	fmt.Println(DimStyle.Render(fmt.Sprintf("engine: grace=%s probe=%s",
		cfg.Engine.GracePeriod(), cfg.Engine.ProbeTimeout())))
	fmt.Println(DimStyle.Render(fmt.Sprintf("finalize: dominant=%.2f pure=%.2f",
		cfg.Finalize.DominantCoverage, cfg.Finalize.PureCoverage)))
	return nil
}

func authSummary(p provider.Provider) string {
	if !p.RequiresAuth {
		return "not required"
	}
	if p.APIKey == "" {
		return "required, missing (set " + provider.EnvKeyName(p.Name) + ")"
	}
	return "key " + p.KeyFingerprint()
}
