package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/unowned-ai/foodtracker/pkg/diary"
)

func stringArg(request mcp.CallToolRequest, name string) string {
	v, _ := request.Params.Arguments[name].(string)
	return strings.TrimSpace(v)
}

// numberArg reads a numeric argument. JSON numbers arrive as float64.
func numberArg(request mcp.CallToolRequest, name string) (float64, bool) {
	switch v := request.Params.Arguments[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func boolArg(request mcp.CallToolRequest, name string) bool {
	v, _ := request.Params.Arguments[name].(bool)
	return v
}

// dayArg parses the optional "date" argument, defaulting to today.
func (t *Tools) dayArg(request mcp.CallToolRequest) (time.Time, error) {
	raw := stringArg(request, "date")
	if raw == "" || strings.EqualFold(raw, "today") {
		return t.now(), nil
	}
	return diary.ParseDay(raw, t.now().Location())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
