package transport

import (
    "bufio"
    "crypto/subtle"
    "fmt"
    "log/slog"
    "net"
    "net/http"
    "strings"
    "time"
)

/* ------------------------------------------------------------------ */
/*                       authentication middleware                    */
/* ------------------------------------------------------------------ */

// authMiddleware creates a middleware that checks for Bearer token authentication
func authMiddleware(lg *slog.Logger, token string, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        // Skip auth for health and version endpoints
        if r.URL.Path == "/health" || r.URL.Path == "/version" {
            next.ServeHTTP(w, r)
            return
        }

        authHeader := r.Header.Get("Authorization")
        if authHeader == "" {
            lg.Warn("missing authorization header", "remote", r.RemoteAddr, "path", r.URL.Path)
            w.Header().Set("WWW-Authenticate", `Bearer realm="MCP Server"`)
            http.Error(w, "Authorization required", http.StatusUnauthorized)
            return
        }

        const bearerPrefix = "Bearer "
        if !strings.HasPrefix(authHeader, bearerPrefix) {
            lg.Warn("invalid authorization format", "remote", r.RemoteAddr)
            http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
            return
        }

        providedToken := strings.TrimPrefix(authHeader, bearerPrefix)
        if subtle.ConstantTimeCompare([]byte(providedToken), []byte(token)) != 1 {
            lg.Warn("invalid token", "remote", r.RemoteAddr)
            http.Error(w, "Invalid token", http.StatusUnauthorized)
            return
        }

        lg.Debug("authenticated request", "remote", r.RemoteAddr, "path", r.URL.Path)
        next.ServeHTTP(w, r)
    })
}

/* -------------------- HTTP middleware ----------------------------- */

// loggingMiddleware provides request logging when the logger has info enabled
func loggingMiddleware(lg *slog.Logger, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !lg.Enabled(r.Context(), slog.LevelInfo) {
            next.ServeHTTP(w, r)
            return
        }

        start := time.Now()
        rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
        next.ServeHTTP(rw, r)

        attrs := []any{
            "remote", r.RemoteAddr,
            "method", r.Method,
            "path", r.URL.Path,
            "status", rw.status,
            "duration", time.Since(start),
        }
        if r.Method == http.MethodPost {
            lg.DebugContext(r.Context(), "http request", append(attrs, "content_length", r.Header.Get("Content-Length"))...)
            return
        }
        lg.InfoContext(r.Context(), "http request", attrs...)
    })
}

// statusWriter wraps http.ResponseWriter so we can capture the status code
// *and* still pass through the streaming interfaces SSE needs.
type statusWriter struct {
    http.ResponseWriter
    status  int
    written bool
}

func (sw *statusWriter) WriteHeader(code int) {
    if !sw.written {
        sw.status = code
        sw.written = true
        sw.ResponseWriter.WriteHeader(code)
    }
}

func (sw *statusWriter) Write(b []byte) (int, error) {
    if !sw.written {
        sw.WriteHeader(http.StatusOK)
    }
    return sw.ResponseWriter.Write(b)
}

// Flush lets the underlying handler stream (needed for SSE)
func (sw *statusWriter) Flush() {
    if f, ok := sw.ResponseWriter.(http.Flusher); ok {
        if !sw.written {
            sw.WriteHeader(http.StatusOK)
        }
        f.Flush()
    }
}

// Hijack lets handlers switch to raw TCP
func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    if h, ok := sw.ResponseWriter.(http.Hijacker); ok {
        return h.Hijack()
    }
    return nil, nil, fmt.Errorf("hijacking not supported")
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
    return sw.ResponseWriter
}
