package tools

import (
    "context"

    "github.com/mark3labs/mcp-go/mcp"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/lightdash"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/shape"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/pkg/types"
)

var (
    searchChartsTool = newTool("lightdash_search_charts", "Search Charts",
        "Search saved charts in a Lightdash project by name. Returns matching chart summaries with UUIDs and types.",
        projectParam,
        mcp.WithString("query",
            mcp.Required(),
            mcp.Description("Search term to filter chart names (case-insensitive)"),
        ),
    )

    getChartTool = newTool("lightdash_get_chart", "Get Chart",
        "Get the full configuration of a saved chart including its query definition, chart type, and table name. Use the chartUuid from lightdash_search_charts.",
        chartParam,
    )

    getChartResultsTool = newTool("lightdash_get_chart_results", "Get Chart Results",
        "Execute a saved chart and return the query results as data rows. Returns column names and flattened row values.",
        chartParam,
    )
)

// metricQueryFields is the part of a saved chart's metric query that is shown.
var metricQueryFields = []string{"dimensions", "metrics", "filters", "sorts", "limit"}

// handleSearchCharts filters the saved charts of a project by name
func (t *Toolset) handleSearchCharts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    projectUUID, err := requireID(req, "projectUuid")
    if err != nil {
        return nil, err
    }
    query, err := req.RequireString("query")
    if err != nil {
        return nil, err
    }

    var charts []lightdash.ChartSummary
    if err := t.api.Get(ctx, pathf("/projects/%s/charts", projectUUID), &charts); err != nil {
        return nil, err
    }

    matches := shape.FilterByName(charts, query, func(c lightdash.ChartSummary) string { return c.Name })
    if len(matches) == 0 {
        return textResult("No charts found matching %q in project %s. Try a broader search term or use lightdash_list_spaces to browse by space.",
            query, projectUUID)
    }

    out := make([]types.ChartSummary, len(matches))
    for i, c := range matches {
        out[i] = types.ChartSummary{
            UUID:      c.UUID,
            Name:      c.Name,
            SpaceName: c.SpaceName,
            ChartType: c.ChartType,
            ChartKind: c.ChartKind,
            UpdatedAt: c.UpdatedAt,
            Slug:      c.Slug,
        }
    }

    t.logger.InfoContext(ctx, "search_charts: matched charts", "project", projectUUID, "matches", len(out), "total", len(charts))
    return jsonResult(out)
}

// handleGetChart returns the configuration of one saved chart
func (t *Toolset) handleGetChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    chartUUID, err := requireID(req, "chartUuid")
    if err != nil {
        return nil, err
    }

    var chart lightdash.SavedChart
    if err := t.api.Get(ctx, pathf("/saved/%s", chartUUID), &chart); err != nil {
        return nil, err
    }

    detail := types.ChartDetail{
        UUID:        chart.UUID,
        Name:        chart.Name,
        Description: chart.Description,
        TableName:   chart.TableName,
        SpaceName:   chart.SpaceName,
        MetricQuery: shape.Pick(chart.MetricQuery, metricQueryFields...),
    }
    if chart.ChartConfig != nil && chart.ChartConfig.Type != "" {
        kind := chart.ChartConfig.Type
        detail.ChartType = &kind
    }

    t.logger.InfoContext(ctx, "get_chart: loaded chart", "chart", chartUUID)
    return jsonResult(detail)
}

// handleGetChartResults executes a saved chart
func (t *Toolset) handleGetChartResults(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    chartUUID, err := requireID(req, "chartUuid")
    if err != nil {
        return nil, err
    }

    var results lightdash.QueryResults
    err = t.api.Post(ctx, pathf("/saved/%s/results", chartUUID), struct{}{}, &results,
        lightdash.WithTimeout(t.queryTimeout))
    if err != nil {
        return nil, err
    }

    out, err := shapeResults(results)
    if err != nil {
        return nil, err
    }

    t.logger.InfoContext(ctx, "get_chart_results: executed chart", "chart", chartUUID, "rows", out.RowCount)
    return jsonResult(out)
}
