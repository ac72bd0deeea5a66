package tools

import (
    "context"
    "encoding/json"
    "fmt"

    "github.com/mark3labs/mcp-go/mcp"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/lightdash"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/shape"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/pkg/types"
)

var runRawQueryTool = newTool("lightdash_run_raw_query", "Run Raw Query",
    "Execute an ad-hoc metric query against a Lightdash explore. Specify dimensions, metrics, and optionally filters (native Lightdash format), sorts, and row limit. Use lightdash_get_explore first to discover available fields.",
    projectParam,
    mcp.WithString("exploreName",
        mcp.Required(),
        mcp.Description("Name of the explore (from lightdash_list_explores)"),
    ),
    mcp.WithArray("dimensions",
        mcp.Required(),
        mcp.Items(map[string]any{"type": "string"}),
        mcp.Description("Array of dimension field IDs (e.g., ['orders_created_date', 'customers_name'])"),
    ),
    mcp.WithArray("metrics",
        mcp.Required(),
        mcp.Items(map[string]any{"type": "string"}),
        mcp.Description("Array of metric field IDs (e.g., ['orders_total_revenue', 'orders_count'])"),
    ),
    mcp.WithObject("filters",
        mcp.Description("Native Lightdash filters object. Structure: { dimensions?: { id, and|or: [{ id, target: { fieldId }, operator, values?, settings? }] }, metrics?: { ... } }. Operators: equals, notEquals, contains, startsWith, greaterThan, lessThan, inThePast, inBetween, isNull, notNull, etc."),
    ),
    mcp.WithArray("sorts",
        mcp.Items(map[string]any{
            "type": "object",
            "properties": map[string]any{
                "fieldId":    map[string]any{"type": "string"},
                "descending": map[string]any{"type": "boolean"},
            },
            "required": []string{"fieldId", "descending"},
        }),
        mcp.Description("Sort order. Each item has fieldId and descending (true for DESC)."),
    ),
    mcp.WithNumber("limit",
        mcp.DefaultNumber(DefaultQueryLimit),
        mcp.Description("Max rows to return (default 500, max 5000)"),
    ),
)

// handleRunRawQuery runs an ad-hoc metric query against an explore
func (t *Toolset) handleRunRawQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    projectUUID, err := requireID(req, "projectUuid")
    if err != nil {
        return nil, err
    }
    exploreName, err := requireID(req, "exploreName")
    if err != nil {
        return nil, err
    }
    dimensions, err := req.RequireStringSlice("dimensions")
    if err != nil {
        return nil, err
    }
    metrics, err := req.RequireStringSlice("metrics")
    if err != nil {
        return nil, err
    }
    sorts, err := sortsArg(req)
    if err != nil {
        return nil, err
    }

    filters := req.GetArguments()["filters"]
    if filters == nil {
        filters = map[string]any{}
    }

    body := lightdash.MetricQueryRequest{
        ExploreName:       exploreName,
        Dimensions:        dimensions,
        Metrics:           metrics,
        Filters:           filters,
        Sorts:             sorts,
        Limit:             ClampLimit(req.GetInt("limit", DefaultQueryLimit)),
        TableCalculations: []any{},
    }

    var results lightdash.QueryResults
    err = t.api.Post(ctx, pathf("/projects/%s/explores/%s/runQuery", projectUUID, exploreName), body, &results,
        lightdash.WithTimeout(t.queryTimeout))
    if err != nil {
        return nil, err
    }

    out, err := shapeResults(results)
    if err != nil {
        return nil, err
    }

    t.logger.InfoContext(ctx, "run_raw_query: executed query",
        "explore", exploreName, "limit", body.Limit, "rows", out.RowCount)
    return jsonResult(out)
}

// ClampLimit maps a requested row limit onto what is sent upstream:
// non-positive means DefaultQueryLimit, anything above MaxQueryLimit is capped.
func ClampLimit(limit int) int {
    if limit <= 0 {
        return DefaultQueryLimit
    }
    return min(limit, MaxQueryLimit)
}

// sortsArg decodes the optional sorts argument.
func sortsArg(req mcp.CallToolRequest) ([]lightdash.SortField, error) {
    sorts := []lightdash.SortField{}
    raw, ok := req.GetArguments()["sorts"]
    if !ok || raw == nil {
        return sorts, nil
    }

    encoded, err := json.Marshal(raw)
    if err != nil {
        return nil, fmt.Errorf("invalid sorts: %w", err)
    }
    if err := json.Unmarshal(encoded, &sorts); err != nil {
        return nil, fmt.Errorf("invalid sorts: %w", err)
    }
    for i, s := range sorts {
        if s.FieldID == "" {
            return nil, fmt.Errorf("invalid sorts: item %d has no fieldId", i)
        }
    }
    return sorts, nil
}

// shapeResults flattens the rows of a query result and caps them at
// shape.MaxRows. RowCount is the number of rows before the cap.
func shapeResults(res lightdash.QueryResults) (types.QueryResults, error) {
    columns, err := res.Columns()
    if err != nil {
        return types.QueryResults{}, err
    }

    page := shape.Truncate(res.Rows, shape.MaxRows)
    return types.QueryResults{
        Columns:   columns,
        Rows:      shape.FlattenRows(page.Items),
        RowCount:  page.Total,
        Truncated: page.Truncated,
        Message:   page.Message,
    }, nil
}
