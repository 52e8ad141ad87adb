package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions for the partmatch MCP server.

// searchTool returns the partmatch_search tool definition.
func searchTool() mcp.Tool {
	return mcp.NewTool("partmatch_search",
		mcp.WithDescription("Match a free-text part description against the product catalog. Returns candidates ordered by similarity with a decision tier: auto (>= 0.90), review (>= 0.75) or manual."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Part description, e.g. 'DuroSeal W&H End Seals Miraflex SDS 007 CR Grau'"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of candidates to return (default: 5, max: 50)"),
		),
		mcp.WithNumber("min_score",
			mcp.Description("Minimum similarity score between 0 and 1 (default: configured min score)"),
		),
	)
}

// lookupTool returns the partmatch_lookup tool definition.
func lookupTool() mcp.Tool {
	return mcp.NewTool("partmatch_lookup",
		mcp.WithDescription("Look up catalog products by exact product code (case-insensitive)."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Product code, e.g. SDS007H"),
		),
	)
}

// indexStatsTool returns the partmatch_index_stats tool definition.
func indexStatsTool() mcp.Tool {
	return mcp.NewTool("partmatch_index_stats",
		mcp.WithDescription("Get statistics of the serving index: version, embedding model, dimension and row count."),
	)
}
