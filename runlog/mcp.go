package runlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/uiproof/kit"
)

// RegisterMCP registers the run-history tools on an MCP server.
func (s *Store) RegisterMCP(srv *mcp.Server) {
	s.registerListTool(srv)
	s.registerGetTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- run_list ---

type listReq struct {
	Limit int `json:"limit,omitempty"`
}

func (s *Store) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "run_list",
		Description: "List recorded capture runs, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum runs to return (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*listReq)
		runs, err := s.ListRuns(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		total, err := s.CountRuns(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"runs": runs, "total": total}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r listReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- run_get ---

type getReq struct {
	ID string `json:"id"`
}

func (s *Store) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "run_get",
		Description: "Fetch one capture run with its artifacts and step events.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Run ID (run_ prefixed)"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*getReq)
		run, err := s.GetRun(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, fmt.Errorf("run %q not found", r.ID)
		}
		artifacts, err := s.ArtifactsByRun(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		events, err := s.EventsByRun(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"run": run, "artifacts": artifacts, "events": events}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r getReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
