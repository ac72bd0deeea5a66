// Package apierr classifies failures from the Lightdash API and renders them
// as text that is safe to hand back to an MCP client.
package apierr

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "regexp"
    "strings"
)

// Caller-facing messages for failures that carry no usable detail of their own.
const (
    TimeoutMessage  = "Request timed out. The Lightdash instance may be slow or unreachable. Try again or check the server status."
    FallbackMessage = "An unexpected error occurred. Check server logs for details."
)

// ErrTimeout is returned (wrapped) when an upstream call exceeds its deadline.
var ErrTimeout = errors.New("lightdash request timed out")

// APIError is a non-2xx response from the Lightdash API.
type APIError struct {
    StatusCode  int
    SafeMessage string
}

// NewAPIError builds an APIError from a status code and the raw response body.
// The body itself is never kept: only an `error.message` or `message` field is
// extracted, and anything else collapses to "HTTP <code>".
func NewAPIError(statusCode int, rawBody string) *APIError {
    msg := extractMessage(rawBody)
    if msg == "" {
        msg = fmt.Sprintf("HTTP %d", statusCode)
    }
    return &APIError{
        StatusCode:  statusCode,
        SafeMessage: Sanitize(msg),
    }
}

// Error includes the status code so log lines keep it. Format builds the
// caller-facing text from the fields instead.
func (e *APIError) Error() string {
    bare := fmt.Sprintf("HTTP %d", e.StatusCode)
    if e.SafeMessage == "" || e.SafeMessage == bare {
        return bare
    }
    return bare + ": " + e.SafeMessage
}

// UnreachableError is a request that never got an HTTP response back, such
// as a failed DNS lookup or a refused connection. Err keeps the transport
// detail for the logs; Format shows only the method and path.
type UnreachableError struct {
    Method string
    Path   string
    Err    error
}

func (e *UnreachableError) Error() string {
    return fmt.Sprintf("request failed: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// extractMessage looks for error.message, then message, in a JSON object body.
func extractMessage(rawBody string) string {
    var parsed map[string]any
    if err := json.Unmarshal([]byte(rawBody), &parsed); err != nil || parsed == nil {
        return ""
    }
    if nested, ok := parsed["error"].(map[string]any); ok {
        if msg, ok := nested["message"].(string); ok && msg != "" {
            return msg
        }
    }
    if msg, ok := parsed["message"].(string); ok && msg != "" {
        return msg
    }
    return ""
}

var (
    reAPIKey    = regexp.MustCompile(`(?i)ApiKey\s+\S+`)
    reURL       = regexp.MustCompile(`(?i)https?://\S+`)
    reStackLine = regexp.MustCompile(`(?m)^[ \t]*at[ \t]+[^\n]*\([^\n]*\)[ \t]*(?:\n|$)`)
)

// Sanitize strips credentials, absolute URLs and stack-trace lines from msg.
// Sanitize(Sanitize(s)) == Sanitize(s) for every s.
func Sanitize(msg string) string {
    // Stack lines go first: the URL pattern would otherwise eat the closing
    // paren of "at fn (https://host/file.js:1:2)".
    msg = reStackLine.ReplaceAllString(msg, "")
    msg = reAPIKey.ReplaceAllString(msg, "ApiKey [REDACTED]")
    msg = reURL.ReplaceAllString(msg, "[URL REDACTED]")
    return strings.TrimRight(msg, "\n")
}

// Format renders err for the MCP client. It is the only place internal
// failures are turned into caller-visible text.
func Format(err error) string {
    if err == nil {
        return FallbackMessage
    }

    var apiErr *APIError
    if errors.As(err, &apiErr) {
        return fmt.Sprintf("Lightdash API error (%d): %s", apiErr.StatusCode, apiErr.SafeMessage)
    }

    if IsTimeout(err) {
        return TimeoutMessage
    }

    var unreachable *UnreachableError
    if errors.As(err, &unreachable) {
        return Sanitize(fmt.Sprintf("request failed: %s %s: could not reach Lightdash", unreachable.Method, unreachable.Path))
    }

    msg := Sanitize(err.Error())
    if strings.TrimSpace(msg) == "" {
        return FallbackMessage
    }
    return msg
}

// FormatRecovered renders a value recovered from a panic.
func FormatRecovered(v any) string {
    if err, ok := v.(error); ok {
        return Format(err)
    }
    return FallbackMessage
}

// IsTimeout reports whether err is a deadline expiry on an upstream call.
func IsTimeout(err error) bool {
    return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
