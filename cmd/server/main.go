// -*- coding: utf-8 -*-
// lightdash-server - read-only Lightdash analytics MCP server
//
// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// This file implements an MCP (Model Context Protocol) server written in Go
// that gives LLM agents read-only access to a Lightdash instance: projects,
// spaces, saved charts, dashboards, explores and ad-hoc metric queries.
//
// Build:
//   go build -o lightdash-server ./cmd/server
//
// Available Tools:
//   - lightdash_ping: Check that the server is running
//   - lightdash_list_projects: List projects in the organization
//   - lightdash_list_spaces: List spaces in a project
//   - lightdash_search_charts: Find saved charts by name
//   - lightdash_get_chart: Describe a saved chart and its query
//   - lightdash_get_chart_results: Run a saved chart and return its rows
//   - lightdash_list_dashboards: List dashboards, optionally filtered by name
//   - lightdash_list_explores: List explores and their compile status
//   - lightdash_get_explore: List the dimensions and metrics of an explore
//   - lightdash_run_raw_query: Run a metric query against an explore
//
// Transport Modes:
//   - stdio: For desktop clients like Claude Desktop (default)
//   - sse: Server-Sent Events for web-based MCP clients
//   - http: HTTP streaming for REST-like interactions
//
// Authentication:
//   Upstream: LIGHTDASH_API_KEY (personal access token), sent as "ApiKey <key>".
//   Downstream: optional Bearer token for SSE and HTTP transports.
//   Use -auth-token flag or AUTH_TOKEN environment variable.
//
// Usage Examples:
//
//   # 1) STDIO transport (for Claude Desktop integration)
//   LIGHTDASH_API_URL=https://app.lightdash.cloud LIGHTDASH_API_KEY=ldpat_... ./lightdash-server
//   ./lightdash-server -log-level=debug    # with debug logging
//   ./lightdash-server -log-level=none     # silent mode
//
//   # 2) SSE transport (for web clients)
//   ./lightdash-server -transport=sse -listen=0.0.0.0 -port=3000
//   ./lightdash-server -transport=sse -public-url=https://lightdash-mcp.example.com
//
//   # 3) HTTP transport with Bearer auth
//   AUTH_TOKEN=secret123 ./lightdash-server -transport=http -addr=127.0.0.1:9090
//
//   # 4) YAML config file (the API key is never read from the file)
//   ./lightdash-server -config=lightdash.yaml
//
// Endpoint URLs:
//
//   SSE Transport:
//     Events:    http://localhost:8080/sse
//     Messages:  http://localhost:8080/message
//     Health:    http://localhost:8080/health
//     Version:   http://localhost:8080/version
//
//   HTTP Transport:
//     MCP:       http://localhost:8080/
//     Info:      http://localhost:8080/info
//     Health:    http://localhost:8080/health
//     Version:   http://localhost:8080/version
//
//   /health?upstream=true also checks that Lightdash is reachable.
//
// Claude Desktop Configuration (stdio):
//   Add to claude_desktop_config.json:
//   {
//     "mcpServers": {
//       "lightdash": {
//         "command": "/path/to/lightdash-server",
//         "args": ["-log-level=error"],
//         "env": {
//           "LIGHTDASH_API_URL": "https://app.lightdash.cloud",
//           "LIGHTDASH_API_KEY": "ldpat_..."
//         }
//       }
//     }
//   }
//
// Testing Examples:
//
//   # HTTP Transport - Use POST with JSON-RPC:
//   curl -X POST http://localhost:8080/ \
//     -H "Content-Type: application/json" \
//     -d '{"jsonrpc":"2.0","method":"initialize","params":{"clientInfo":{"name":"test","version":"1.0"}},"id":1}'
//
// Environment Variables:
//   LIGHTDASH_API_URL       - Lightdash base URL (required)
//   LIGHTDASH_API_KEY       - Lightdash personal access token (required)
//   LIGHTDASH_TIMEOUT       - Upstream request timeout (default 30s)
//   LIGHTDASH_QUERY_TIMEOUT - Timeout for query execution tools (default 60s)
//   LIGHTDASH_RATE_LIMIT    - Max upstream requests per second (default unlimited)
//   AUTH_TOKEN              - Bearer token for SSE/HTTP authentication
//   LOG_LEVEL               - debug|info|warn|error|none
//
// -------------------------------------------------------------------

package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "io"
    "log/slog"
    "os"
    "os/signal"
    "strings"
    "syscall"

    "github.com/mark3labs/mcp-go/server"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/config"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/lightdash"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/metrics"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/monitor"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/tools"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/transport"
)

/* ------------------------------------------------------------------ */
/*                             constants                              */
/* ------------------------------------------------------------------ */

const (
    appName    = "lightdash-server"
    appVersion = "0.1.0"

    configHint = "Set these in Claude Desktop config under mcpServers.lightdash.env"
)

/* ------------------------------------------------------------------ */
/*                             logging                                */
/* ------------------------------------------------------------------ */

// parseLvl converts a string log level to a slog level. ok is false for the
// silent levels.
func parseLvl(s string) (lvl slog.Level, ok bool) {
    switch strings.ToLower(s) {
    case "debug":
        return slog.LevelDebug, true
    case "info":
        return slog.LevelInfo, true
    case "warn", "warning":
        return slog.LevelWarn, true
    case "error":
        return slog.LevelError, true
    case "none", "off", "silent":
        return slog.LevelError, false
    default:
        return slog.LevelInfo, true
    }
}

// newLogger returns a text logger on w. Nothing is ever logged to stdout.
func newLogger(w io.Writer, level string) *slog.Logger {
    lvl, ok := parseLvl(level)
    if !ok {
        w = io.Discard
    }
    return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

/* ------------------------------------------------------------------ */
/*                               flags                                */
/* ------------------------------------------------------------------ */

type flags struct {
    fs *flag.FlagSet

    configPath string
    transport  string
    addr       string
    listen     string
    port       int
    publicURL  string
    authToken  string
    logLevel   string
    showHelp   bool
}

func newFlags(stderr io.Writer) *flags {
    def := config.DefaultConfig()
    f := &flags{fs: flag.NewFlagSet(appName, flag.ContinueOnError)}
    f.fs.SetOutput(stderr)

    f.fs.StringVar(&f.configPath, "config", "", "Optional YAML config file")
    f.fs.StringVar(&f.transport, "transport", def.Server.Transport, "Transport: stdio | sse | http")
    f.fs.StringVar(&f.addr, "addr", "", "Full listen address (host:port) - overrides -listen/-port")
    f.fs.StringVar(&f.listen, "listen", def.Server.Listen, "Listen interface for sse/http")
    f.fs.IntVar(&f.port, "port", def.Server.Port, "TCP port for sse/http")
    f.fs.StringVar(&f.publicURL, "public-url", "", "External base URL advertised to SSE clients")
    f.fs.StringVar(&f.authToken, "auth-token", "", "Bearer token for authentication (SSE/HTTP only)")
    f.fs.StringVar(&f.logLevel, "log-level", def.Server.LogLevel, "Logging level: debug|info|warn|error|none")
    f.fs.BoolVar(&f.showHelp, "help", false, "Show help message")

    f.fs.Usage = func() {
        const ind = "  "
        out := f.fs.Output()
        fmt.Fprintf(out, "%s %s - read-only Lightdash analytics for LLM agents via MCP\n\n", appName, appVersion)
        fmt.Fprintln(out, "Options:")
        f.fs.VisitAll(func(fl *flag.Flag) {
            fmt.Fprintf(out, ind+"-%s\n", fl.Name)
            fmt.Fprintf(out, ind+ind+"%s (default %q)\n\n", fl.Usage, fl.DefValue)
        })
        fmt.Fprintf(out,
            "Examples:\n"+
                ind+"%s -transport=stdio -log-level=none\n"+
                ind+"%s -transport=sse -listen=0.0.0.0 -port=8080\n"+
                ind+"%s -transport=http -addr=127.0.0.1:9090 -auth-token=secret123\n\n"+
                "Environment Variables:\n"+
                ind+"LIGHTDASH_API_URL, LIGHTDASH_API_KEY (required)\n"+
                ind+"LIGHTDASH_TIMEOUT, LIGHTDASH_QUERY_TIMEOUT, LIGHTDASH_RATE_LIMIT, AUTH_TOKEN, LOG_LEVEL\n",
            appName, appName, appName)
    }
    return f
}

// apply copies flags that were given on the command line over cfg.
func (f *flags) apply(cfg *config.Config) {
    f.fs.Visit(func(fl *flag.Flag) {
        switch fl.Name {
        case "transport":
            cfg.Server.Transport = f.transport
        case "addr":
            cfg.Server.Addr = f.addr
        case "listen":
            cfg.Server.Listen = f.listen
        case "port":
            cfg.Server.Port = f.port
        case "public-url":
            cfg.Server.PublicURL = f.publicURL
        case "auth-token":
            cfg.Server.AuthToken = f.authToken
        case "log-level":
            cfg.Server.LogLevel = f.logLevel
        }
    })
}

/* ------------------------------------------------------------------ */
/*                               main                                 */
/* ------------------------------------------------------------------ */

// loadConfig resolves defaults, file, .env, environment and flags, in that
// order of precedence.
func loadConfig(f *flags) (*config.Config, error) {
    if err := config.LoadDotEnv(); err != nil {
        return nil, err
    }
    cfg, err := config.Load(f.configPath)
    if err != nil {
        return nil, err
    }
    if err := cfg.ApplyEnv(); err != nil {
        return nil, err
    }
    f.apply(cfg)
    return cfg, cfg.Validate()
}

// fatal reports startup problems on stderr, one per line.
func fatal(stderr io.Writer, err error) int {
    var ve *config.ValidationError
    if errors.As(err, &ve) {
        for _, p := range ve.Problems {
            fmt.Fprintf(stderr, "FATAL: %s\n", p)
        }
        fmt.Fprintln(stderr, configHint)
        return 1
    }
    fmt.Fprintf(stderr, "FATAL: %v\n", err)
    return 1
}

// run is main without process globals. stdout carries MCP protocol bytes and
// nothing else.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
    f := newFlags(stderr)
    if err := f.fs.Parse(args); err != nil {
        if errors.Is(err, flag.ErrHelp) {
            return 0
        }
        return 2
    }
    if f.showHelp {
        f.fs.Usage()
        return 0
    }

    /* ----------------------- configuration setup ------------------ */
    cfg, err := loadConfig(f)
    if err != nil {
        return fatal(stderr, err)
    }

    /* ------------------------- logging setup ---------------------- */
    lg := newLogger(stderr, cfg.Server.LogLevel)
    lg.Debug("starting", "name", appName, "version", appVersion, "transport", cfg.Server.Transport)

    client, err := lightdash.New(lightdash.Config{
        BaseURL:   cfg.Lightdash.APIURL,
        APIKey:    cfg.Lightdash.APIKey,
        Timeout:   cfg.Lightdash.Timeout,
        UserAgent: appName + "/" + appVersion,
        Logger:    lg,
        RateLimit: cfg.Lightdash.RateLimit,
    })
    if err != nil {
        return fatal(stderr, fmt.Errorf("%s: %w", config.EnvAPIURL, err))
    }
    lg.Info("connected to lightdash", "url", client.BaseURL())

    /* ----------------------- build MCP server --------------------- */
    s := server.NewMCPServer(
        appName,
        appVersion,
        server.WithToolCapabilities(false),
        server.WithInstructions(tools.Instructions),
        server.WithLogging(),
        server.WithRecovery(),
    )
    toolset := tools.New(client, lg, tools.WithQueryTimeout(cfg.Lightdash.QueryTimeout))
    s.AddTools(toolset.Tools()...)

    /* --------------------------- transport ------------------------ */
    if strings.EqualFold(cfg.Server.Transport, transport.Stdio) {
        if err := transport.ServeStdio(ctx, s, stdin, stdout, lg); err != nil {
            lg.Error("stdio server failed", "error", err)
            return 1
        }
        return 0
    }

    pc, err := metrics.NewProcessCollector()
    if err != nil {
        lg.Warn("process stats unavailable", "error", err)
    }
    opts := transport.Options{
        Name:      appName,
        Version:   appVersion,
        Transport: cfg.Server.Transport,
        Addr:      cfg.Server.Addr,
        Listen:    cfg.Server.Listen,
        Port:      cfg.Server.Port,
        PublicURL: cfg.Server.PublicURL,
        AuthToken: cfg.Server.AuthToken,
        Logger:    lg,
        Process:   pc,
        Upstream:  monitor.NewHealthChecker(client, cfg.Lightdash.Timeout),
    }
    if err := transport.ListenAndServe(ctx, s, opts); err != nil {
        lg.Error("server failed", "error", err)
        return 1
    }
    return 0
}

func main() {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

    // Only the MCP server writes to the real stdout.
    protoOut := os.Stdout
    os.Stdout = os.Stderr

    code := run(ctx, os.Args[1:], os.Stdin, protoOut, os.Stderr)
    stop()
    os.Exit(code)
}
