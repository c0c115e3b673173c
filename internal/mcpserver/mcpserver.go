// Package mcpserver exposes batch runs and stored postings as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/pipeline"
	"github.com/spigell/job-intake/internal/posting"
)

const (
	ToolRunBatch       = "run_batch"
	ToolRecentPostings = "recent_postings"
	ToolBatchStatus    = "batch_status"
	ToolStopBatch      = "stop_batch"

	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) pipeline.Summary
	State() pipeline.State
}

type Lister interface {
	ListRecent(ctx context.Context, limit int) ([]*posting.Posting, error)
}

// Deps wires the tools. Stop is optional; without it stop_batch is not registered.
type Deps struct {
	Runner Runner
	Store  Lister
	Stop   func(ctx context.Context) error
	Logger *zap.Logger
}

type Server struct {
	mcp    *server.MCPServer
	deps   Deps
	logger *zap.Logger
	busy   sync.Mutex
}

// recentPosting is the compact view returned by recent_postings.
type recentPosting struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Company      string  `json:"company"`
	Location     string  `json:"location,omitempty"`
	URL          string  `json:"url,omitempty"`
	Score        float64 `json:"score"`
	Priority     string  `json:"priority"`
	Verification string  `json:"verification"`
	FirstSeen    string  `json:"first_seen,omitempty"`
}

func New(name, version string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{
		mcp:    server.NewMCPServer(name, version),
		deps:   deps,
		logger: deps.Logger,
	}
	s.register()
	return s
}

// ServeStdio blocks serving MCP requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) register() {
	runTool := mcp.NewTool(ToolRunBatch,
		mcp.WithDescription("Scrape, score and store job postings until the target count is stored or the cycle ceiling is reached"),
	)
	runTool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"target":     map[string]interface{}{"type": "integer", "description": "Number of postings to store (default from config)"},
			"queries":    map[string]interface{}{"type": "string", "description": "Comma separated search queries (default from config)"},
			"page_limit": map[string]interface{}{"type": "integer", "description": "Pages per query before rotating"},
			"max_cycles": map[string]interface{}{"type": "integer", "description": "Hard ceiling on scrape cycles"},
		},
	}
	s.mcp.AddTool(runTool, s.handleRunBatch)

	recentTool := mcp.NewTool(ToolRecentPostings,
		mcp.WithDescription("List the most recently stored job postings, oldest first"),
	)
	recentTool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"limit": map[string]interface{}{"type": "integer", "description": "Max postings to return (default 10, max 100)"},
		},
	}
	s.mcp.AddTool(recentTool, s.handleRecent)

	s.mcp.AddTool(mcp.NewTool(ToolBatchStatus,
		mcp.WithDescription("Report the state of the batch orchestrator"),
	), s.handleStatus)

	if s.deps.Stop != nil {
		s.mcp.AddTool(mcp.NewTool(ToolStopBatch,
			mcp.WithDescription("Ask the running batch to stop after its current cycle; ignored when no batch is running"),
		), s.handleStop)
	}
}

func (s *Server) handleRunBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	opts := pipeline.RunOptions{
		Target:    intArg(args, "target"),
		PageLimit: intArg(args, "page_limit"),
		MaxCycles: intArg(args, "max_cycles"),
	}
	if v, ok := args["queries"].(string); ok {
		for _, q := range strings.Split(v, ",") {
			if q = strings.TrimSpace(q); q != "" {
				opts.Queries = append(opts.Queries, q)
			}
		}
	}

	if s.deps.Runner.State().Active() || !s.busy.TryLock() {
		return mcp.NewToolResultError("a batch is already running"), nil
	}
	defer s.busy.Unlock()

	s.logger.Info("batch requested over mcp", zap.Int("target", opts.Target), zap.Strings("queries", opts.Queries))
	summary := s.deps.Runner.Run(ctx, opts)

	out, err := json.Marshal(summary)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleRecent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	limit := intArg(args, "limit")
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	items, err := s.deps.Store.ListRecent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read postings: %v", err)), nil
	}

	out := make([]recentPosting, 0, len(items))
	for _, p := range items {
		r := recentPosting{
			ID:           p.ID,
			Title:        p.Title,
			Company:      p.Company,
			Location:     p.Location,
			URL:          p.URL,
			Score:        p.Score,
			Priority:     p.Priority,
			Verification: p.Verification,
		}
		if !p.FirstSeen.IsZero() {
			r.FirstSeen = p.FirstSeen.Format("2006-01-02")
		}
		out = append(out, r)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode postings: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (s *Server) handleStatus(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.deps.Runner.State().String()), nil
}

func (s *Server) handleStop(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.deps.Runner.State().Active() {
		return mcp.NewToolResultText("No batch is running."), nil
	}
	if err := s.deps.Stop(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to request stop: %v", err)), nil
	}
	return mcp.NewToolResultText("Stop requested; the batch ends after its current cycle."), nil
}

// arguments treats a missing argument object as empty.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

func intArg(args map[string]interface{}, name string) int {
	switch v := args[name].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return 0
}
