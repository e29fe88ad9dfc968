package panelread

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/panelread/kit"
)

// RegisterMCP registers panelread tools on an MCP server.
func (r *Reader) RegisterMCP(srv *mcp.Server) {
	r.registerReadTool(srv)
	r.registerPanelsTool(srv)
	r.registerSessionsTool(srv)
	r.registerSessionTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (r *Reader) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(r.logger, name))(ep)
}

// --- read ---

type readRequest struct {
	Panel string `json:"panel"`
}

func (r *Reader) registerReadTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "panelread_read",
		Description: "Read a configured virtualized panel from top to bottom and return its table (header, records, header-keyed rows, content hash).",
		InputSchema: inputSchema(map[string]any{
			"panel": map[string]any{"type": "string", "description": "Panel name from the configuration"},
		}, []string{"panel"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(readRequest)
		if rr.Panel == "" {
			return nil, fmt.Errorf("panel is required")
		}
		return r.Read(ctx, rr.Panel)
	}

	kit.RegisterMCPTool(srv, tool, r.endpoint(tool.Name, endpoint), kit.DecodeArgs[readRequest])
}

// --- panels ---

// PanelInfo summarises a configured panel.
type PanelInfo struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	URL    string `json:"url"`
	Ragged string `json:"ragged"`
}

// PanelInfos lists the configured panels.
func (r *Reader) PanelInfos() []PanelInfo {
	out := make([]PanelInfo, 0, len(r.cfg.Panels))
	for _, p := range r.cfg.Panels {
		out = append(out, PanelInfo{Name: p.Name, Kind: p.Kind, URL: p.URL, Ragged: p.Ragged})
	}
	return out
}

func (r *Reader) registerPanelsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "panelread_panels",
		Description: "List the configured panels.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return r.PanelInfos(), nil
	}

	kit.RegisterMCPTool(srv, tool, r.endpoint(tool.Name, endpoint), kit.DecodeArgs[struct{}])
}

// --- sessions ---

type sessionsRequest struct {
	Panel string `json:"panel,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

func (r *Reader) registerSessionsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "panelread_sessions",
		Description: "List past read sessions, newest first, with status, error kind, record count and content hash.",
		InputSchema: inputSchema(map[string]any{
			"panel": map[string]any{"type": "string", "description": "Only sessions of this panel"},
			"limit": map[string]any{"type": "integer", "description": "Max sessions (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		sr := req.(sessionsRequest)
		return r.Sessions(ctx, sr.Panel, sr.Limit)
	}

	kit.RegisterMCPTool(srv, tool, r.endpoint(tool.Name, endpoint), kit.DecodeArgs[sessionsRequest])
}

// --- session ---

type sessionRequest struct {
	ID string `json:"id"`
}

func (r *Reader) registerSessionTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "panelread_session",
		Description: "Get one past read session with its records.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Session ID (rd_...)"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		sr := req.(sessionRequest)
		d, err := r.Session(ctx, sr.ID)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fmt.Errorf("session %q not found", sr.ID)
		}
		return d, nil
	}

	kit.RegisterMCPTool(srv, tool, r.endpoint(tool.Name, endpoint), kit.DecodeArgs[sessionRequest])
}
