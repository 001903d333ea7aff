package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchTool returns the tool definition for search.
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search the encrypted mail/contact/calendar index and return the newest-matching entities",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query; wrap in double quotes to require consecutive word order",
				},
				"user": map[string]interface{}{
					"type":        "string",
					"description": "User identifier, used when an index extension is required",
				},
				"entity_type": map[string]interface{}{
					"type":        "string",
					"description": "Entity kind to restrict the search to",
					"enum":        []string{"mail", "contact", "calendar_event"},
					"default":     "mail",
				},
				"attribute_ids": map[string]interface{}{
					"type":        "array",
					"description": "Whitelist of attribute ids to match against (omit for no restriction)",
					"items":       map[string]interface{}{"type": "integer"},
				},
				"list_id": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to this list id (base64), omit for no restriction",
				},
				"start": map[string]interface{}{
					"type":        "integer",
					"description": "Epoch ms upper (newest) bound (inclusive), omit for unbounded",
				},
				"end": map[string]interface{}{
					"type":        "integer",
					"description": "Epoch ms lower (oldest) bound (inclusive), omit for the default horizon",
				},
				"min_suggestion_count": map[string]interface{}{
					"type":        "integer",
					"description": "Activates the suggestion path once > 0: minimum passing suggestions to stop at",
					"default":     0,
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results for this page, omit for unbounded",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getMoreSearchResultsTool returns the tool definition for
// get_more_search_results.
func getMoreSearchResultsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_more_search_results",
		Description: "Fetch the next page of results for a prior search call",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"result_id": map[string]interface{}{
					"type":        "string",
					"description": "The result_id returned by a prior search/get_more_search_results call",
				},
				"more_result_count": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum additional results to append to this page",
					"default":     10,
				},
			},
			Required: []string{"result_id", "more_result_count"},
		},
	}
}
