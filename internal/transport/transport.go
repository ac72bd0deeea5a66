// Package transport serves an MCP server over stdio, SSE or streamable HTTP.
package transport

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/mark3labs/mcp-go/server"
    "golang.org/x/sync/errgroup"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/metrics"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/monitor"
)

// Transport names
const (
    Stdio = "stdio"
    SSE   = "sse"
    HTTP  = "http"
)

const shutdownTimeout = 5 * time.Second

// Options configures the network transports. Stdio only uses Logger.
type Options struct {
    Name    string
    Version string

    Transport string
    Addr      string // overrides Listen/Port
    Listen    string
    Port      int
    PublicURL string
    AuthToken string

    Logger *slog.Logger

    // Optional; /health omits what is not configured.
    Process  *metrics.ProcessCollector
    Upstream *monitor.HealthChecker
}

func (o Options) logger() *slog.Logger {
    if o.Logger == nil {
        return slog.Default()
    }
    return o.Logger
}

// EffectiveAddr determines the actual address to listen on
func (o Options) EffectiveAddr() string {
    if o.Addr != "" {
        return o.Addr
    }
    return fmt.Sprintf("%s:%d", o.Listen, o.Port)
}

/* ------------------------------------------------------------------ */
/*                               stdio                                */
/* ------------------------------------------------------------------ */

// ServeStdio reads JSON-RPC lines from in and writes responses to out until
// in is exhausted or ctx is done. out receives protocol bytes only.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, lg *slog.Logger) error {
    if lg == nil {
        lg = slog.Default()
    }
    stdio := server.NewStdioServer(s)
    stdio.SetErrorLogger(slog.NewLogLogger(lg.Handler(), slog.LevelError))

    lg.InfoContext(ctx, "serving via stdio transport")
    err := stdio.Listen(ctx, in, out)
    if errors.Is(err, context.Canceled) {
        return nil
    }
    return err
}

/* ------------------------------------------------------------------ */
/*                             http based                             */
/* ------------------------------------------------------------------ */

// NewHandler builds the full handler chain for the sse or http transport.
// Paths without an explicit route go to the MCP handler.
func NewHandler(s *server.MCPServer, opts Options) (http.Handler, error) {
    lg := opts.logger()
    r := chi.NewRouter()
    r.Use(middleware.RealIP, middleware.Recoverer)

    switch strings.ToLower(opts.Transport) {
    case SSE:
        sseOpts := []server.SSEOption{}
        if opts.PublicURL != "" {
            sseOpts = append(sseOpts, server.WithBaseURL(strings.TrimRight(opts.PublicURL, "/")))
        }
        r.NotFound(server.NewSSEServer(s, sseOpts...).ServeHTTP)

        lg.Info("SSE endpoints", "events", "/sse", "messages", "/message", "health", "/health", "version", "/version")

    case HTTP:
        r.NotFound(server.NewStreamableHTTPServer(s, server.WithEndpointPath("/")).ServeHTTP)
        r.Get("/info", func(w http.ResponseWriter, _ *http.Request) {
            w.Header().Set("Content-Type", "application/json")
            fmt.Fprint(w, `{"message":"MCP HTTP server ready","instructions":"Use POST requests with JSON-RPC 2.0 payloads","example":{"jsonrpc":"2.0","method":"tools/list","id":1}}`)
        })

        lg.Info("HTTP endpoints", "mcp", "/ (POST with JSON-RPC)", "info", "/info", "health", "/health", "version", "/version")

    default:
        return nil, fmt.Errorf("unknown transport %q", opts.Transport)
    }

    registerHealthAndVersion(r, opts)

    var handler http.Handler = r
    handler = loggingMiddleware(lg, handler)
    if opts.AuthToken != "" {
        lg.Info("authentication enabled", "scheme", "Bearer")
        handler = authMiddleware(lg, opts.AuthToken, handler)
    }
    return handler, nil
}

// ListenAndServe serves the sse or http transport until ctx is done, then
// shuts down gracefully.
func ListenAndServe(ctx context.Context, s *server.MCPServer, opts Options) error {
    handler, err := NewHandler(s, opts)
    if err != nil {
        return err
    }

    lg := opts.logger()
    addr := opts.EffectiveAddr()
    srv := &http.Server{
        Addr:              addr,
        Handler:           handler,
        ReadHeaderTimeout: 10 * time.Second,
    }

    eg, ctx := errgroup.WithContext(ctx)
    eg.Go(func() error {
        lg.Info("server ready", "transport", opts.Transport, "addr", "http://"+addr)
        if opts.PublicURL != "" {
            lg.Info("public URL", "url", opts.PublicURL)
        }
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            return fmt.Errorf("%s server: %w", opts.Transport, err)
        }
        return nil
    })
    eg.Go(func() error {
        <-ctx.Done()
        lg.Info("shutting down", "transport", opts.Transport)
        shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
        defer cancel()
        return srv.Shutdown(shutdownCtx)
    })
    return eg.Wait()
}
