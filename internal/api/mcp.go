package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/jobtrack/internal/query"
	"github.com/kalambet/jobtrack/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store  *storage.Store
	Engine *query.Engine
}

// NewMCPServer creates an MCP server with the jobtrack query tools registered.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"jobtrack",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("jobtrack: query and summarize tracked job applications for one owner at a time."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_jobs",
			mcp.WithDescription("List one page of an owner's job applications, filtered and sorted."),
			mcp.WithString("owner_id", mcp.Description("Owner whose applications are listed"), mcp.Required()),
			mcp.WithString("search", mcp.Description("Case-insensitive substring of company or position")),
			mcp.WithString("status", mcp.Description("pending, interview, declined or all")),
			mcp.WithString("type", mcp.Description("full-time, part-time, internship, remote or all")),
			mcp.WithString("sort", mcp.Description("newest (default), oldest, a-z or z-a")),
			mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
			mcp.WithNumber("limit", mcp.Description("Page size (default 10)")),
		),
		mcpListJobs(deps),
	)

	s.AddTool(
		mcp.NewTool("job_stats",
			mcp.WithDescription("Count an owner's applications by status and by month over the six most recent months."),
			mcp.WithString("owner_id", mcp.Description("Owner whose applications are counted"), mcp.Required()),
		),
		mcpJobStats(deps),
	)

	s.AddTool(
		mcp.NewTool("get_job",
			mcp.WithDescription("Fetch a single job application by id."),
			mcp.WithString("owner_id", mcp.Description("Owner the application must belong to"), mcp.Required()),
			mcp.WithString("id", mcp.Description("Job id"), mcp.Required()),
		),
		mcpGetJob(deps),
	)

	return s
}

func mcpListJobs(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ownerID, err := requireOwner(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		params := query.Params{
			Search: argString(req, "search"),
			Status: argString(req, "status"),
			Type:   argString(req, "type"),
			Sort:   argString(req, "sort"),
			Page:   argString(req, "page"),
			Limit:  argString(req, "limit"),
		}
		res, err := deps.Engine.List(ctx, ownerID, params)
		if err != nil {
			return mcpError(fmt.Sprintf("listing jobs failed: %v", err)), nil
		}
		return mcpJSON(res)
	}
}

func mcpJobStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ownerID, err := requireOwner(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		stats, err := deps.Engine.Stats(ctx, ownerID)
		if err != nil {
			return mcpError(fmt.Sprintf("computing stats failed: %v", err)), nil
		}
		return mcpJSON(stats)
	}
}

func mcpGetJob(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ownerID, err := requireOwner(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		id, err := req.RequireString("id")
		if err != nil || strings.TrimSpace(id) == "" {
			return mcpError("id is required"), nil
		}

		rec, err := deps.Store.GetJob(ctx, id)
		// A foreign record is reported as missing so ids of other owners do not leak.
		if errors.Is(err, storage.ErrNotFound) || (err == nil && rec.OwnerID != ownerID) {
			return mcpError(fmt.Sprintf("no job with id %s", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get job: %v", err)), nil
		}
		return mcpJSON(rec)
	}
}

func requireOwner(req mcp.CallToolRequest) (string, error) {
	ownerID, err := req.RequireString("owner_id")
	if err != nil || strings.TrimSpace(ownerID) == "" {
		return "", errors.New("owner_id is required")
	}
	return strings.TrimSpace(ownerID), nil
}

// argString returns an optional argument as raw text. Numbers are rendered
// as the client sent them so the query builder applies its own fallbacks.
func argString(req mcp.CallToolRequest, key string) string {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
