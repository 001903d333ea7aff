package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/mailsearch/pkg/types"
)

// MCP error codes.
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
	ErrorCodeResultExpired = -32005 // result_id does not name a live SearchResult
)

// entityTypeByName maps the schema's entity_type enum to the domain type.
var entityTypeByName = map[string]types.EntityType{
	"mail":           types.EntityTypeMail,
	"contact":        types.EntityTypeContact,
	"calendar_event": types.EntityTypeCalendarEvent,
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	user := getStringDefault(args, "user", "")

	restriction, err := restrictionFromArgs(args)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid restriction", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	minSuggestionCount := getIntDefault(args, "min_suggestion_count", 0)

	var maxResults *int
	if v := getIntDefault(args, "max_results", -1); v >= 0 {
		maxResults = &v
	}

	result, err := s.engine.Search(ctx, query, restriction, minSuggestionCount, maxResults, user)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resultID := s.putResult(result)
	return mcp.NewToolResultText(formatJSON(searchResponse(resultID, result))), nil
}

// handleGetMoreSearchResults handles the get_more_search_results tool invocation.
func (s *Server) handleGetMoreSearchResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	resultID, ok := args["result_id"].(string)
	if !ok || resultID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "result_id parameter is required", map[string]interface{}{
			"param":  "result_id",
			"reason": "missing or empty",
		})
	}

	result, ok := s.getResult(resultID)
	if !ok {
		return nil, newMCPError(ErrorCodeResultExpired, "unknown result_id", map[string]interface{}{
			"param": "result_id",
			"value": resultID,
		})
	}

	moreResultCount := getIntDefault(args, "more_result_count", 10)
	user := getStringDefault(args, "user", "")

	if err := s.engine.GetMoreSearchResults(ctx, result, moreResultCount, user); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "get_more_search_results failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(searchResponse(resultID, result))), nil
}

// restrictionFromArgs builds a SearchRestriction from the search tool's
// flattened parameters.
func restrictionFromArgs(args map[string]interface{}) (types.SearchRestriction, error) {
	entityType := types.EntityTypeMail
	if name := getStringDefault(args, "entity_type", ""); name != "" {
		et, ok := entityTypeByName[name]
		if !ok {
			return types.SearchRestriction{}, fmt.Errorf("unknown entity_type %q", name)
		}
		entityType = et
	}

	var attributeIDs []uint8
	if raw, ok := args["attribute_ids"].([]interface{}); ok {
		for _, v := range raw {
			f, ok := v.(float64)
			if !ok {
				return types.SearchRestriction{}, fmt.Errorf("attribute_ids must be integers")
			}
			attributeIDs = append(attributeIDs, uint8(f))
		}
	}

	var listID []byte
	if raw, ok := args["list_id"].(string); ok && raw != "" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return types.SearchRestriction{}, fmt.Errorf("list_id: %w", err)
		}
		listID = decoded
	}

	start := int64Ptr(args, "start")
	end := int64Ptr(args, "end")

	return types.SearchRestriction{
		Type:         entityType,
		AttributeIDs: attributeIDs,
		ListID:       listID,
		Start:        start,
		End:          end,
	}, nil
}

func int64Ptr(args map[string]interface{}, key string) *int64 {
	v, ok := args[key].(float64)
	if !ok {
		return nil
	}
	i := int64(v)
	return &i
}

// searchResponse formats a SearchResult for the wire: byte fields are
// base64-encoded since JSON has no native binary type.
func searchResponse(resultID string, result *types.SearchResult) map[string]interface{} {
	pairs := make([]map[string]interface{}, 0, len(result.Results))
	for _, pair := range result.Results {
		pairs = append(pairs, map[string]interface{}{
			"id":      base64.StdEncoding.EncodeToString(pair.ID),
			"list_id": base64.StdEncoding.EncodeToString(pair.ListID),
		})
	}

	return map[string]interface{}{
		"result_id":               resultID,
		"query":                   result.Query,
		"match_word_order":        result.MatchWordOrder,
		"current_index_timestamp": result.CurrentIndexTimestamp,
		"results":                 pairs,
		"has_more":                len(result.MoreResultsEntries) > 0 || cursorsHaveMore(result.LastReadSearchIndexRow),
		"timing_ms": map[string]interface{}{
			"tokenize":     result.Timing.TokenizeDuration.Milliseconds(),
			"index_extend": result.Timing.IndexExtendDuration.Milliseconds(),
			"pipeline":     result.Timing.PipelineDuration.Milliseconds(),
		},
	}
}

func cursorsHaveMore(cursors []types.Cursor) bool {
	for _, c := range cursors {
		if !c.Exhausted() {
			return true
		}
	}
	return false
}

// newMCPError creates a properly formatted MCP error.
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON.
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value.
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
