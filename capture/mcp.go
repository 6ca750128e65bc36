package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/uiproof/kit"
)

// RegisterMCP registers the capture tools on an MCP server. scenarios holds
// the runnable set keyed by name; run executes one of them.
func RegisterMCP(srv *mcp.Server, scenarios map[string]Scenario, run RunFunc) {
	registerRunTool(srv, scenarios, run)
	registerScenariosTool(srv, scenarios)
}

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

// --- capture_run ---

type runReq struct {
	Scenario string `json:"scenario"`
	URL      string `json:"url,omitempty"`
}

func registerRunTool(srv *mcp.Server, scenarios map[string]Scenario, run RunFunc) {
	tool := &mcp.Tool{
		Name:        "capture_run",
		Description: "Run a named capture scenario against a live page and return the run result with its artifacts.",
		InputSchema: inputSchema(map[string]any{
			"scenario": map[string]any{"type": "string", "description": "Scenario name to run"},
			"url":      map[string]any{"type": "string", "description": "Optional URL override for the scenario"},
		}, []string{"scenario"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*runReq)
		sc, ok := scenarios[r.Scenario]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", r.Scenario)
		}
		if r.URL != "" {
			sc.URL = r.URL
		}
		return run(ctx, sc)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r runReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- capture_scenarios ---

func registerScenariosTool(srv *mcp.Server, scenarios map[string]Scenario) {
	tool := &mcp.Tool{
		Name:        "capture_scenarios",
		Description: "List the capture scenarios available to capture_run.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		names := make([]string, 0, len(scenarios))
		for name := range scenarios {
			names = append(names, name)
		}
		sort.Strings(names)
		return map[string]any{"scenarios": names}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
