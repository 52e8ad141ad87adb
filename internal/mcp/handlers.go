package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
	"github.com/asteroid-belt/partmatch/internal/search"
)

const (
	defaultTopK = 5
	maxTopK     = 50
)

// parseTopK extracts and validates the top_k parameter from MCP tool arguments.
// Returns defaultVal if not present, caps at maxVal if exceeded.
func parseTopK(arguments map[string]interface{}, defaultVal, maxVal int) int {
	if l, ok := arguments["top_k"].(float64); ok && l > 0 {
		k := int(l)
		if k > maxVal {
			return maxVal
		}
		return k
	}
	return defaultVal
}

// trackToolCall is a helper to track MCP tool invocations.
func (s *Server) trackToolCall(toolName string, start time.Time, success bool) {
	if s.telemetry != nil {
		s.telemetry.TrackMCPToolCalled(toolName, time.Since(start).Milliseconds(), success)
	}
}

// ProductResponse represents a catalog product in MCP responses.
type ProductResponse struct {
	Row         int    `json:"row"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// CandidateResponse represents a search candidate in MCP responses.
type CandidateResponse struct {
	ProductResponse
	Score    float32 `json:"score"`
	Method   string  `json:"method"`
	Decision string  `json:"decision"`
}

func toProductResponse(p models.ProductMetadata) ProductResponse {
	return ProductResponse{
		Row:         p.Row,
		Code:        p.Code,
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Description: p.Description,
	}
}

// handleSearch handles the partmatch_search tool.
func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	cfg := s.search.Config()

	query, ok := req.Params.Arguments["query"].(string)
	if !ok || query == "" {
		s.trackToolCall("partmatch_search", start, false)
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	topK := parseTopK(req.Params.Arguments, defaultTopK, maxTopK)
	minScore := cfg.MinScore
	if v, ok := req.Params.Arguments["min_score"].(float64); ok {
		minScore = float32(v)
	}

	candidates, err := s.search.Search(ctx, query, topK, minScore)
	if err != nil {
		s.trackToolCall("partmatch_search", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("search failed (%s): %v", matcherr.KindName(err), err)), nil
	}

	results := make([]CandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, CandidateResponse{
			ProductResponse: toProductResponse(c.Product),
			Score:           c.Score,
			Method:          string(c.Method),
			Decision:        string(search.Decide(c.Score, cfg.Policy)),
		})
	}

	data, err := json.Marshal(results)
	if err != nil {
		s.trackToolCall("partmatch_search", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	if s.telemetry != nil {
		s.telemetry.TrackSearchPerformed(len(results), topK, "mcp")
	}

	s.trackToolCall("partmatch_search", start, true)
	return mcp.NewToolResultText(string(data)), nil
}

// handleLookup handles the partmatch_lookup tool.
func (s *Server) handleLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()

	code, ok := req.Params.Arguments["code"].(string)
	if !ok || code == "" {
		s.trackToolCall("partmatch_lookup", start, false)
		return mcp.NewToolResultError("code parameter is required"), nil
	}

	rows := s.search.Index().Lookup(code)
	if len(rows) == 0 {
		s.trackToolCall("partmatch_lookup", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("product not found: %s", code)), nil
	}

	results := make([]ProductResponse, 0, len(rows))
	for _, r := range rows {
		results = append(results, toProductResponse(r))
	}
	data, err := json.Marshal(results)
	if err != nil {
		s.trackToolCall("partmatch_lookup", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal products: %v", err)), nil
	}

	s.trackToolCall("partmatch_lookup", start, true)
	return mcp.NewToolResultText(string(data)), nil
}

// handleIndexStats handles the partmatch_index_stats tool.
func (s *Server) handleIndexStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()

	data, err := json.Marshal(s.search.Index().Stats())
	if err != nil {
		s.trackToolCall("partmatch_index_stats", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
	}

	s.trackToolCall("partmatch_index_stats", start, true)
	return mcp.NewToolResultText(string(data)), nil
}
