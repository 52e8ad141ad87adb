package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// resourcePrefix is the URI scheme for partmatch resources.
const resourcePrefix = "partmatch://"

// parseProductURI extracts the row from a partmatch://product/{row} URI.
func parseProductURI(uri string) (int, error) {
	if !strings.HasPrefix(uri, resourcePrefix+"product/") {
		return 0, fmt.Errorf("invalid URI scheme: %s", uri)
	}
	raw := strings.TrimPrefix(uri, resourcePrefix+"product/")
	if raw == "" {
		return 0, fmt.Errorf("empty row in URI: %s", uri)
	}
	row, err := strconv.Atoi(raw)
	if err != nil || row < 0 {
		return 0, fmt.Errorf("invalid row in URI: %s", uri)
	}
	return row, nil
}

// handleProductResource handles partmatch://product/{row} resources.
func (s *Server) handleProductResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	row, err := parseProductURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	product, ok := s.search.Index().Product(row)
	if !ok {
		return nil, fmt.Errorf("product not found: row %d", row)
	}

	data, err := json.Marshal(toProductResponse(product))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product: %v", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
