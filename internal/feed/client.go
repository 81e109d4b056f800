package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HendryAvila/coherence/internal/clock"
	"github.com/HendryAvila/coherence/internal/outcome"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolCaller is the slice of an MCP client the feed needs.
// *client.Client from mcp-go satisfies it.
type ToolCaller interface {
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Status is the adapter's connection state.
type Status string

const (
	StatusAbsent       Status = "absent" // no service configured
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// State is the observable feed status. Coherence is the blended value
// and reads 0 whenever the feed is not connected.
type State struct {
	Status     Status     `json:"status"`
	Coherence  float64    `json:"coherence"`
	LastSample *Sample    `json:"lastSample,omitempty"`
	LastPollAt *time.Time `json:"lastPollAt,omitempty"`
	LastError  string     `json:"lastError,omitempty"`
	Polls      uint64     `json:"polls"`
	Failures   uint64     `json:"failures"`
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Timeout time.Duration
	Clock   clock.Clock
	Logger  *slog.Logger
}

// DefaultTimeout bounds a single request when none is configured.
const DefaultTimeout = 3 * time.Second

// Client performs request/response calls against the coherence service.
type Client struct {
	caller  ToolCaller
	timeout time.Duration
	clock   clock.Clock
	logger  *slog.Logger

	// fetching guards against overlapping state polls.
	fetching atomic.Bool

	mu    sync.Mutex
	state State
}

// NewClient wraps caller. A nil caller yields a permanently absent feed.
func NewClient(caller ToolCaller, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	status := StatusDisconnected
	if caller == nil {
		status = StatusAbsent
	}
	return &Client{
		caller:  caller,
		timeout: opts.Timeout,
		clock:   opts.Clock,
		logger:  opts.Logger,
		state:   State{Status: status},
	}
}

// Fetch pulls one coherence sample. When a previous Fetch is still in
// flight it returns a skipped outcome without calling the service.
func (c *Client) Fetch(ctx context.Context) (Sample, outcome.Outcome) {
	const op = "fetch_state"
	if c.caller == nil {
		return Sample{}, outcome.Skipped(op)
	}
	if !c.fetching.CompareAndSwap(false, true) {
		return Sample{}, outcome.Skipped(op)
	}
	defer c.fetching.Store(false)

	res, err := c.call(ctx, ToolGetState, nil)
	now := c.clock.Now()
	if err != nil {
		c.markDisconnected(now, err)
		return Sample{}, outcome.Failed(op, outcome.StatusDisconnected, err)
	}

	sample, err := ParseState(res, now)
	if errors.Is(err, ErrServiceIdle) {
		c.markIdle(now)
		return Sample{}, outcome.Skipped(op)
	}
	if err != nil {
		c.markDisconnected(now, err)
		return Sample{}, outcome.Failed(op, outcome.StatusDiscarded, err)
	}

	c.markConnected(now, sample)
	return sample, outcome.OK(op)
}

// PushBreath reports one completed cycle to the service.
func (c *Client) PushBreath(ctx context.Context, inhaleMs, exhaleMs int64) outcome.Outcome {
	const op = "push_breath"
	if c.caller == nil || inhaleMs <= 0 || exhaleMs <= 0 {
		return outcome.Skipped(op)
	}
	res, err := c.call(ctx, ToolPushBreath, map[string]any{
		"inhale_ms": float64(inhaleMs),
		"exhale_ms": float64(exhaleMs),
	})
	if err == nil && res != nil && res.IsError {
		err = ErrToolError
	}
	if err != nil {
		c.logger.Debug("breath push dropped", "error", err)
		return outcome.Failed(op, outcome.StatusDisconnected, err)
	}
	return outcome.OK(op)
}

// Reset clears the service's accumulated state.
func (c *Client) Reset(ctx context.Context) outcome.Outcome {
	const op = "reset"
	if c.caller == nil {
		return outcome.Skipped(op)
	}
	res, err := c.call(ctx, ToolReset, nil)
	if err == nil && res != nil && res.IsError {
		err = ErrToolError
	}
	if err != nil {
		c.logger.Debug("feed reset dropped", "error", err)
		return outcome.Failed(op, outcome.StatusDisconnected, err)
	}
	return outcome.OK(op)
}

// State returns a copy of the current feed status.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.LastSample != nil {
		sample := *s.LastSample
		s.LastSample = &sample
	}
	return s
}

func (c *Client) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args

	res, err := c.caller.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("feed: call %s: %w", name, err)
	}
	return res, nil
}

func (c *Client) markConnected(now time.Time, s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusConnected {
		c.logger.Info("coherence feed connected")
	}
	c.state.Status = StatusConnected
	c.state.Coherence = s.ScalarCoherence
	c.state.LastSample = &s
	c.state.LastPollAt = &now
	c.state.LastError = ""
	c.state.Polls++
}

func (c *Client) markIdle(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Status = StatusConnected
	c.state.Coherence = 0
	c.state.LastPollAt = &now
	c.state.LastError = ""
	c.state.Polls++
}

func (c *Client) markDisconnected(now time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == StatusConnected {
		c.logger.Info("coherence feed disconnected", "error", err)
	} else {
		c.logger.Debug("coherence feed unavailable", "error", err)
	}
	c.state.Status = StatusDisconnected
	c.state.Coherence = 0
	c.state.LastPollAt = &now
	c.state.LastError = err.Error()
	c.state.Polls++
	c.state.Failures++
}
