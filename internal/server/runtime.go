package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/HendryAvila/coherence/internal/clock"
	"github.com/HendryAvila/coherence/internal/config"
	"github.com/HendryAvila/coherence/internal/engine"
	"github.com/HendryAvila/coherence/internal/feed"
	"github.com/HendryAvila/coherence/internal/store"
)

// Runtime owns the long-lived pieces behind every entry point: the
// store, the engine and, when configured, the feed poller.
type Runtime struct {
	Engine *engine.Engine
	Logger *slog.Logger

	// Poller is nil when no feed command is configured.
	Poller *feed.Poller

	closers []io.Closer
}

// NewLogger returns a text logger on w at the configured level.
// stdout carries the MCP stdio transport, so callers pass stderr.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewRuntime builds the runtime from cfg. A SQLite store that cannot
// be opened degrades to in-memory counters with a warning.
func NewRuntime(cfg config.Config, logger *slog.Logger, clk clock.Clock) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if clk == nil {
		clk = clock.Real()
	}
	rt := &Runtime{Logger: logger}

	var sessions store.SessionStore
	if cfg.Ephemeral {
		sessions = store.NewMemory()
	} else {
		sqlite, err := store.New(store.Config{DataDir: cfg.DataDir, Logger: logger.With("component", "store")})
		if err != nil {
			logger.Warn("counters will not persist", "error", err)
			sessions = store.NewMemory()
		} else {
			sessions = sqlite
			rt.closers = append(rt.closers, sqlite)
		}
	}

	var client *feed.Client
	if cfg.Feed.Enabled() {
		feedLogger := logger.With("component", "feed")
		caller := feed.NewStdioCaller(feed.StdioConfig{
			Command:       cfg.Feed.Command,
			Args:          cfg.Feed.Args,
			Env:           cfg.Feed.Env,
			ClientVersion: Version,
			Logger:        feedLogger,
		})
		rt.closers = append(rt.closers, caller)
		client = feed.NewClient(caller, feed.ClientOptions{
			Timeout: cfg.Feed.Timeout,
			Clock:   clk,
			Logger:  feedLogger,
		})
	}

	rt.Engine = engine.New(engine.Options{
		Store:            sessions,
		Clock:            clk,
		Logger:           logger.With("component", "engine"),
		Feed:             client,
		PushBreath:       cfg.Feed.PushBreath,
		ResetFeedOnStart: cfg.Feed.ResetOnStart,
	})

	if client != nil {
		rt.Poller = feed.NewPoller(client, rt.Engine, feed.PollerOptions{
			Interval: cfg.Feed.PollInterval,
			Clock:    clk,
			Logger:   logger.With("component", "poller"),
		})
	}
	return rt, nil
}

// Start launches background work. It returns immediately.
func (rt *Runtime) Start(ctx context.Context) {
	if rt.Poller != nil {
		rt.Poller.Start(ctx)
	}
}

// Close stops the poller, drains background feed calls and releases
// the store and the feed subprocess, in that order.
func (rt *Runtime) Close() error {
	if rt.Poller != nil {
		rt.Poller.Stop()
	}
	rt.Engine.Close()

	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("server: close: %w", err)
	}
	return nil
}
