// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// dreamvisitor-dash is the terminal dashboard for a Dreamvisitor
// deployment: live server status, the merged log/command console,
// the bot and server.properties config editors, and player profile
// management, all over the record gateway's HTTP and realtime APIs.
package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/dreamvisitor/dashboard/dashui"
	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/lib/clock"
	"github.com/dreamvisitor/dashboard/lib/config"
	"github.com/dreamvisitor/dashboard/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var gatewayURL string
	var logOutput string
	var startTab string

	flagSet := pflag.NewFlagSet("dreamvisitor-dash", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the dashboard config file (YAML)")
	flagSet.StringVar(&gatewayURL, "gateway", "", "gateway base URL (overrides config)")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file (overrides config)")
	flagSet.StringVar(&startTab, "tab", "home", "tab to open after login: home, console, config, users")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("dreamvisitor-dash")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("dreamvisitor-dash needs an interactive terminal")
	}

	// The theme is authored in ANSI-256; pin the renderer so truecolor
	// and basic terminals resolve the palette the same way.
	lipgloss.SetColorProfile(termenv.ANSI256)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if gatewayURL != "" {
		cfg.Gateway.URL = gatewayURL
	}
	if logOutput != "" {
		cfg.Log.Output = logOutput
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := gateway.NewClient(gateway.ClientConfig{
		BaseURL:        cfg.Gateway.URL,
		Logger:         logger,
		RequestTimeout: cfg.Gateway.RequestTimeout,
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	app, err := dashui.NewApp(dashui.AppConfig{
		Client:       client,
		Clock:        clock.Real(),
		Logger:       logger,
		HistoryLimit: cfg.Console.HistoryLimit,
	})
	if err != nil {
		return err
	}

	model := dashui.NewModel(app, parseTab(startTab))
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// newLogger builds the slog logger per config: JSON records to the
// output file, or discarded while the TUI owns the terminal.
func newLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if cfg.Output == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}

	file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
	return logger, func() { file.Close() }, nil
}

func parseTab(name string) dashui.Tab {
	switch name {
	case "console":
		return dashui.TabConsole
	case "config":
		return dashui.TabConfig
	case "users":
		return dashui.TabUsers
	default:
		return dashui.TabHome
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Dreamvisitor dashboard — interactive terminal UI for server operators.

Connects to the record gateway named by --gateway (or the config
file, or DREAMVISITOR_GATEWAY_URL) and opens the login screen.

Usage:
  dreamvisitor-dash [flags]

Flags:
%s`, flagSet.FlagUsages())
}
