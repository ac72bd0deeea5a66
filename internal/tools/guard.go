package tools

import (
    "context"
    "errors"
    "log/slog"
    "runtime/debug"

    "github.com/mark3labs/mcp-go/mcp"
    "github.com/mark3labs/mcp-go/server"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/apierr"
)

// Guard is the failure boundary around a tool handler. Errors and panics are
// logged in full and turned into an isError result carrying only the
// sanitized message. The returned Go error is always nil.
func Guard(lg *slog.Logger, next server.ToolHandlerFunc) server.ToolHandlerFunc {
    return func(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
        defer func() {
            if r := recover(); r != nil {
                lg.ErrorContext(ctx, "tool panicked",
                    "tool", req.Params.Name, "panic", r, "stack", string(debug.Stack()))
                res, err = mcp.NewToolResultError(apierr.FormatRecovered(r)), nil
            }
        }()

        res, err = next(ctx, req)
        if err != nil {
            attrs := []any{"tool", req.Params.Name, "error", err}
            var apiErr *apierr.APIError
            if errors.As(err, &apiErr) {
                attrs = append(attrs, "status", apiErr.StatusCode)
            }
            lg.ErrorContext(ctx, "tool failed", attrs...)
            return mcp.NewToolResultError(apierr.Format(err)), nil
        }
        if res == nil {
            lg.ErrorContext(ctx, "tool returned no result", "tool", req.Params.Name)
            return mcp.NewToolResultError(apierr.FallbackMessage), nil
        }
        return res, nil
    }
}
