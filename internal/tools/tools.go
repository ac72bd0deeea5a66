// Package tools binds the Lightdash read-only operations to MCP tools.
//
// Each tool is one small pipeline: read arguments, make one upstream call
// through the API, shape the payload, return JSON text. Failures are plain
// error returns; Guard turns them into sanitized tool results.
package tools

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "log/slog"
    "net/url"
    "strings"
    "time"

    "github.com/mark3labs/mcp-go/mcp"
    "github.com/mark3labs/mcp-go/server"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/lightdash"
)

const (
    // DefaultQueryLimit is the row limit sent upstream when the caller gives none.
    DefaultQueryLimit = 500
    // MaxQueryLimit is the highest row limit ever sent upstream.
    MaxQueryLimit = 5000
    // QueryTimeout is the deadline for calls that execute queries.
    QueryTimeout = 60 * time.Second
)

// Instructions is advertised to clients on initialize.
const Instructions = `Read-only access to a Lightdash instance.
Start with lightdash_list_projects to find a projectUuid.
Browse content with lightdash_list_spaces, lightdash_search_charts and lightdash_list_dashboards.
To read data from a saved chart use lightdash_get_chart_results with its chartUuid.
For ad-hoc questions call lightdash_list_explores, then lightdash_get_explore to learn the field IDs, then lightdash_run_raw_query.`

// API is the part of the Lightdash client the tools need.
type API interface {
    Get(ctx context.Context, path string, out any, opts ...lightdash.CallOption) error
    Post(ctx context.Context, path string, body, out any, opts ...lightdash.CallOption) error
}

// Toolset holds what every tool handler shares. It is immutable after New.
type Toolset struct {
    api          API
    logger       *slog.Logger
    queryTimeout time.Duration
}

// Option configures a Toolset.
type Option func(*Toolset)

// WithQueryTimeout overrides QueryTimeout for chart results and raw queries.
func WithQueryTimeout(d time.Duration) Option {
    return func(t *Toolset) {
        if d > 0 {
            t.queryTimeout = d
        }
    }
}

// New returns a Toolset that talks to api.
func New(api API, lg *slog.Logger, opts ...Option) *Toolset {
    if lg == nil {
        lg = slog.Default()
    }
    t := &Toolset{api: api, logger: lg, queryTimeout: QueryTimeout}
    for _, opt := range opts {
        opt(t)
    }
    return t
}

// Tools returns every tool, each wrapped in Guard.
func (t *Toolset) Tools() []server.ServerTool {
    defs := []server.ServerTool{
        {Tool: pingTool, Handler: t.handlePing},
        {Tool: listProjectsTool, Handler: t.handleListProjects},
        {Tool: listSpacesTool, Handler: t.handleListSpaces},
        {Tool: searchChartsTool, Handler: t.handleSearchCharts},
        {Tool: getChartTool, Handler: t.handleGetChart},
        {Tool: getChartResultsTool, Handler: t.handleGetChartResults},
        {Tool: listDashboardsTool, Handler: t.handleListDashboards},
        {Tool: listExploresTool, Handler: t.handleListExplores},
        {Tool: getExploreTool, Handler: t.handleGetExplore},
        {Tool: runRawQueryTool, Handler: t.handleRunRawQuery},
    }
    for i := range defs {
        defs[i].Handler = Guard(t.logger, defs[i].Handler)
    }
    return defs
}

// readOnly is the annotation set shared by every tool.
func readOnly(title string) []mcp.ToolOption {
    return []mcp.ToolOption{
        mcp.WithTitleAnnotation(title),
        mcp.WithReadOnlyHintAnnotation(true),
        mcp.WithDestructiveHintAnnotation(false),
        mcp.WithIdempotentHintAnnotation(true),
        mcp.WithOpenWorldHintAnnotation(true),
    }
}

func newTool(name, title, description string, params ...mcp.ToolOption) mcp.Tool {
    opts := append([]mcp.ToolOption{mcp.WithDescription(description)}, readOnly(title)...)
    return mcp.NewTool(name, append(opts, params...)...)
}

var projectParam = mcp.WithString("projectUuid",
    mcp.Required(),
    mcp.Description("UUID of the Lightdash project"),
)

var chartParam = mcp.WithString("chartUuid",
    mcp.Required(),
    mcp.Description("UUID of the saved chart (from lightdash_search_charts)"),
)

/* ------------------------------------------------------------------ */
/*                         argument helpers                           */
/* ------------------------------------------------------------------ */

// requireID reads a required, non-blank identifier argument.
func requireID(req mcp.CallToolRequest, key string) (string, error) {
    v, err := req.RequireString(key)
    if err != nil {
        return "", err
    }
    v = strings.TrimSpace(v)
    if v == "" {
        return "", fmt.Errorf("argument %q must not be empty", key)
    }
    return v, nil
}

// pathf builds an API path, escaping every argument as one path segment.
func pathf(format string, segments ...string) string {
    args := make([]any, len(segments))
    for i, s := range segments {
        args[i] = url.PathEscape(s)
    }
    return fmt.Sprintf(format, args...)
}

/* ------------------------------------------------------------------ */
/*                          result helpers                            */
/* ------------------------------------------------------------------ */

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
    var buf bytes.Buffer
    enc := json.NewEncoder(&buf)
    enc.SetEscapeHTML(false)
    enc.SetIndent("", "  ")
    if err := enc.Encode(v); err != nil {
        return nil, fmt.Errorf("encode result: %w", err)
    }
    return mcp.NewToolResultText(strings.TrimRight(buf.String(), "\n")), nil
}

// textResult is used for the descriptive empty-result messages.
func textResult(format string, a ...any) (*mcp.CallToolResult, error) {
    return mcp.NewToolResultText(fmt.Sprintf(format, a...)), nil
}
