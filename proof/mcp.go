package proof

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/uiproof/kit"
)

// RegisterMCP registers the artifact verification tool on an MCP server.
func RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "verify_artifact",
		Description: "Verify a capture artifact on disk: decode a PNG or validate a PDF, optionally comparing a PNG against a second one for visual difference.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":       map[string]any{"type": "string", "description": "Artifact file path"},
				"kind":       map[string]any{"type": "string", "description": "png or pdf; inferred from the extension when omitted"},
				"compare_to": map[string]any{"type": "string", "description": "Optional second PNG to compare against"},
			},
			"required": []string{"path"},
		},
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*verifyReq)
		return verify(r)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r verifyReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

type verifyReq struct {
	Path      string `json:"path"`
	Kind      string `json:"kind,omitempty"`
	CompareTo string `json:"compare_to,omitempty"`
}

func verify(r *verifyReq) (any, error) {
	kind := strings.ToLower(r.Kind)
	if kind == "" {
		kind = strings.TrimPrefix(strings.ToLower(filepath.Ext(r.Path)), ".")
	}

	switch kind {
	case "png":
		rep, err := VerifyPNG(r.Path)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"kind":   "png",
			"path":   rep.Path,
			"width":  rep.Width,
			"height": rep.Height,
			"bytes":  rep.Bytes,
		}
		if r.CompareTo != "" {
			distinct, err := Distinct(r.Path, r.CompareTo)
			if err != nil {
				return nil, err
			}
			out["distinct"] = distinct
		}
		return out, nil

	case "pdf":
		rep, err := VerifyPDF(r.Path)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":  "pdf",
			"path":  rep.Path,
			"pages": rep.Pages,
			"bytes": rep.Bytes,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported artifact kind %q", kind)
	}
}
