// Package resources implements MCP resource handlers for the breath engine.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (coherence://...) following MCP conventions.
package resources

import (
	"context"
	"fmt"

	"github.com/HendryAvila/coherence/internal/engine"
	"github.com/HendryAvila/coherence/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// Resource URIs.
const (
	StateURI = "coherence://engine/state"
	StatsURI = "coherence://engine/stats"
)

// Source is what the resources read. *engine.Engine satisfies it.
type Source interface {
	State() engine.Snapshot
	Counters() store.Counters
}

// Handler manages coherence resource endpoints.
type Handler struct {
	source Source
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// StateResource returns the MCP resource definition for the engine snapshot.
func (h *Handler) StateResource() mcp.Resource {
	return mcp.NewResource(
		StateURI,
		"Coherence Engine State",
		mcp.WithResourceDescription("Live breath phase, recent cycles, operator graph, gear and feed status"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleState returns the current snapshot as JSON. Reading ticks the
// live counters first.
func (h *Handler) HandleState(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, h.source.State())
}

// StatsResource returns the MCP resource definition for persisted counters.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		StatsURI,
		"Breath Statistics",
		mcp.WithResourceDescription("Total cycles, best symmetry and longest phi-sync streak across sessions"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the persisted counters as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	contents, err := jsonContents(req.Params.URI, h.source.Counters())
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return contents, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
