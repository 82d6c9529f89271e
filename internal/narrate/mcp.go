package narrate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cicerone/internal/script"
	"cicerone/pkg/logging"
	"cicerone/pkg/version"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPConfig configures the Cicerone MCP server.
type MCPConfig struct {
	Service *Service
	Logger  logging.Logger
}

// NewMCPServer creates an MCP server exposing the narration pipeline as
// tools (narrate_location, deep_research, classify_query) so agent hosts
// can drive it without the HTTP API.
func NewMCPServer(cfg MCPConfig) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "cicerone",
		Version: version.Version,
	}, nil)

	registerNarrateLocation(srv, cfg)
	registerDeepResearch(srv, cfg)
	registerClassifyQuery(srv, cfg)

	return srv
}

// --- narrate_location ---

type narrateLocationInput struct {
	Query           string `json:"query" jsonschema:"required" jsonschema_description:"Location or topic to narrate"`
	DurationMinutes int    `json:"duration_minutes,omitempty" jsonschema_description:"Target script duration in minutes (default 10)"`
}

type narrateLocationResponse struct {
	Query     string                `json:"query"`
	Route     string                `json:"route"`
	Script    string                `json:"script"`
	Metrics   script.QualityMetrics `json:"metrics"`
	Attempts  int                   `json:"attempts"`
	Succeeded bool                  `json:"succeeded"`
}

func registerNarrateLocation(srv *mcp.Server, cfg MCPConfig) {
	mcp.AddTool(srv,
		&mcp.Tool{
			Name:        "narrate_location",
			Description: "Generate a spoken narration script about a location or topic. Gathers encyclopedia, structured-data, and geographic sources, then writes and validates the script.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args narrateLocationInput) (*mcp.CallToolResult, any, error) {
			return handleNarrateLocation(ctx, args, cfg)
		},
	)
}

func handleNarrateLocation(ctx context.Context, args narrateLocationInput, cfg MCPConfig) (*mcp.CallToolResult, any, error) {
	if cfg.Service == nil {
		return toolError("narration service unavailable")
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return toolError("query is required")
	}

	narration, err := cfg.Service.Narrate(ctx, query, args.DurationMinutes, nil)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.WithError(err).WithField("query", query).Warn("narrate_location failed")
		}
		return toolError(fmt.Sprintf("narration failed: %v", err))
	}
	mcpToolCalls.WithLabelValues("narrate_location").Inc()

	resp := narrateLocationResponse{
		Query:     narration.Query,
		Route:     narration.Route,
		Script:    narration.Script,
		Metrics:   narration.Metrics,
		Attempts:  narration.Attempts,
		Succeeded: narration.Succeeded,
	}
	return toolSuccess(resp)
}

// --- deep_research ---

type deepResearchInput struct {
	Question string `json:"question" jsonschema:"required" jsonschema_description:"Question to research in depth"`
	Depth    int    `json:"depth,omitempty" jsonschema_description:"Research depth from 1 (quick) to 6 (exhaustive), default 3"`
}

func registerDeepResearch(srv *mcp.Server, cfg MCPConfig) {
	mcp.AddTool(srv,
		&mcp.Tool{
			Name:        "deep_research",
			Description: "Research a question with a search-capable model and return a structured answer: overview, key findings, detailed explanation, conclusion, and cited sources.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args deepResearchInput) (*mcp.CallToolResult, any, error) {
			return handleDeepResearch(ctx, args, cfg)
		},
	)
}

func handleDeepResearch(ctx context.Context, args deepResearchInput, cfg MCPConfig) (*mcp.CallToolResult, any, error) {
	if cfg.Service == nil {
		return toolError("narration service unavailable")
	}
	question := strings.TrimSpace(args.Question)
	if question == "" {
		return toolError("question is required")
	}

	result, err := cfg.Service.Research(ctx, question, args.Depth)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.WithError(err).WithField("question", question).Warn("deep_research failed")
		}
		return toolError(fmt.Sprintf("research failed: %v", err))
	}
	mcpToolCalls.WithLabelValues("deep_research").Inc()

	return toolSuccess(result)
}

// --- classify_query ---

type classifyQueryInput struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"Query to classify as a question or a location lookup"`
}

func registerClassifyQuery(srv *mcp.Server, cfg MCPConfig) {
	mcp.AddTool(srv,
		&mcp.Tool{
			Name:        "classify_query",
			Description: "Classify a query: is it an open question (routed to deep research) or a location lookup (routed to content aggregation)?",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args classifyQueryInput) (*mcp.CallToolResult, any, error) {
			return handleClassifyQuery(ctx, args, cfg)
		},
	)
}

func handleClassifyQuery(_ context.Context, args classifyQueryInput, cfg MCPConfig) (*mcp.CallToolResult, any, error) {
	if cfg.Service == nil {
		return toolError("narration service unavailable")
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return toolError("query is required")
	}

	mcpToolCalls.WithLabelValues("classify_query").Inc()
	return toolSuccess(cfg.Service.Classify(query))
}

// --- helpers ---

func toolError(message string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}, nil, nil
}

func toolSuccess(result any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("failed to format result: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, result, nil
}
