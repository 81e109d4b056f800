package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// StdioConfig describes how to launch the coherence service.
type StdioConfig struct {
	Command string
	Args    []string
	Env     []string
	// ClientName and ClientVersion are sent in the MCP handshake.
	ClientName    string
	ClientVersion string
	Logger        *slog.Logger
}

// conn is the part of an MCP client connection the caller uses.
type conn interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// StdioCaller spawns the coherence service as an MCP stdio subprocess
// on first use and re-spawns it after a transport failure or a timed
// out call, so the feed tolerates the service being absent or wedged
// for any length of time.
type StdioCaller struct {
	cfg  StdioConfig
	dial func(ctx context.Context) (conn, error)

	mu  sync.Mutex
	cli conn
}

// NewStdioCaller creates a lazy stdio caller. Nothing is started yet.
func NewStdioCaller(cfg StdioConfig) *StdioCaller {
	if cfg.ClientName == "" {
		cfg.ClientName = "coherence"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	s := &StdioCaller{cfg: cfg}
	s.dial = s.spawn
	return s
}

// CallTool connects if needed and forwards the call.
func (s *StdioCaller) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cli, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	res, err := cli.CallTool(ctx, req)
	if err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		// Transport failure or a hung process: drop it so the next call
		// re-spawns. A cancelled caller says nothing about the service.
		s.drop(cli)
	}
	return res, err
}

// Close stops the subprocess, if any.
func (s *StdioCaller) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cli == nil {
		return nil
	}
	err := s.cli.Close()
	s.cli = nil
	return err
}

func (s *StdioCaller) connect(ctx context.Context) (conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cli != nil {
		return s.cli, nil
	}
	cli, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	s.cli = cli
	return cli, nil
}

// spawn starts the subprocess and runs the MCP handshake.
func (s *StdioCaller) spawn(ctx context.Context) (conn, error) {
	cli, err := client.NewStdioMCPClient(s.cfg.Command, s.cfg.Env, s.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("feed: start %s: %w", s.cfg.Command, err)
	}

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{
		Name:    s.cfg.ClientName,
		Version: s.cfg.ClientVersion,
	}
	if _, err := cli.Initialize(ctx, init); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("feed: initialize %s: %w", s.cfg.Command, err)
	}

	s.cfg.Logger.Info("coherence service started", "command", s.cfg.Command)
	return cli, nil
}

func (s *StdioCaller) drop(cli conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cli != cli {
		return
	}
	_ = s.cli.Close()
	s.cli = nil
	s.cfg.Logger.Warn("coherence service dropped")
}
