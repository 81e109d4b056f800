// coherence: breath-phase coherence engine
//
// Turns breath phase events into scored cycles and a small activation
// graph, optionally blended with readings from an external coherence
// service. Exposed as an MCP server and as a live terminal view.
//
// Usage:
//
//	coherence serve    # Start MCP server (stdio transport)
//	coherence watch    # Live terminal view
//	coherence stats    # Print persisted statistics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"

	"github.com/HendryAvila/coherence/internal/config"
	cohserver "github.com/HendryAvila/coherence/internal/server"
	"github.com/HendryAvila/coherence/internal/tools"
	"github.com/HendryAvila/coherence/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("coherence v%s\n", cohserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	ephemeral  bool
	logLevel   string
	logFile    string
	json       bool
}

func parseFlags(name string, args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("coherence "+name, pflag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", os.Getenv("COHERENCE_CONFIG"), "config file (default ~/.coherence/config.toml)")
	fs.BoolVar(&opts.ephemeral, "ephemeral", false, "keep statistics in memory only")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides the config file)")
	switch name {
	case "watch":
		fs.StringVar(&opts.logFile, "log-file", "", "write logs to this file (the view owns the terminal)")
	case "stats":
		fs.BoolVar(&opts.json, "json", false, "print JSON")
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return opts, nil
}

// load resolves the configuration and builds the runtime with logs on w.
func load(opts options, w io.Writer) (config.Config, *cohserver.Runtime, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if opts.ephemeral {
		cfg.Ephemeral = true
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}

	logger := cohserver.NewLogger(w, level)
	rt, err := cohserver.NewRuntime(cfg, logger, nil)
	if err != nil {
		return cfg, nil, fmt.Errorf("creating runtime: %w", err)
	}
	return cfg, rt, nil
}

func runServe(args []string) error {
	opts, err := parseFlags("serve", args)
	if err != nil {
		return err
	}
	// stdout carries the MCP transport; logs go to stderr.
	_, rt, err := load(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Warn("shutdown", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.Start(ctx)
	rt.Logger.Info("serving", "version", cohserver.Version, "feed", rt.Poller != nil)
	return server.ServeStdio(cohserver.New(rt))
}

func runWatch(args []string) error {
	opts, err := parseFlags("watch", args)
	if err != nil {
		return err
	}

	var logs io.Writer = io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logs = f
	}

	cfg, rt, err := load(opts, logs)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	program := tea.NewProgram(tui.New(rt.Engine, cfg.Watch.FrameInterval), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func runStats(args []string) error {
	opts, err := parseFlags("stats", args)
	if err != nil {
		return err
	}
	_, rt, err := load(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	c := rt.Engine.Counters()
	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	fmt.Print(tools.RenderCounters(c))
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `coherence v%s: breath-phase coherence engine

Usage:
  coherence <command> [flags]

Commands:
  serve     Start the MCP server (stdio transport)
  watch     Live terminal view; space alternates inhale and exhale
  stats     Print statistics persisted across sessions
  version   Print version
  help      Show this help

Flags:
  --config PATH     config file (default ~/.coherence/config.toml, or $COHERENCE_CONFIG)
  --ephemeral       keep statistics in memory only
  --log-level LVL   debug, info, warn or error
  --log-file PATH   (watch) write logs to a file
  --json            (stats) print JSON

Configure it in your AI tool's MCP settings:
  {
    "mcpServers": {
      "coherence": {
        "command": "coherence",
        "args": ["serve"]
      }
    }
  }
`, cohserver.Version)
}
