// Package lightdash is the single HTTP chokepoint to the Lightdash API.
//
// Every tool goes through Client: it normalizes the base URL, injects the
// ApiKey header, enforces a per-call deadline and unwraps the
// {status, results} envelope so callers only ever see results.
package lightdash

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/google/uuid"
    "golang.org/x/time/rate"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/apierr"
)

const (
    // DefaultTimeout applies to every call without a WithTimeout override.
    DefaultTimeout = 30 * time.Second

    apiPath   = "/api/v1"
    userAgent = "lightdash-server"
)

// Config holds the settings a Client is built from.
type Config struct {
    BaseURL   string
    APIKey    string
    Timeout   time.Duration
    UserAgent string
    Logger    *slog.Logger

    // RateLimit caps outgoing requests per second. Zero means unlimited.
    RateLimit float64

    // HTTPClient is optional; tests use it to point at an httptest server.
    HTTPClient *http.Client
}

// Client talks to one Lightdash instance. It is safe for concurrent use and
// holds no state that changes after New returns.
type Client struct {
    baseURL        string
    headers        http.Header
    defaultTimeout time.Duration
    http           *http.Client
    limiter        *rate.Limiter
    logger         *slog.Logger
}

// envelope is the wrapper every successful Lightdash response uses.
type envelope struct {
    Status  string          `json:"status"`
    Results json.RawMessage `json:"results"`
}

// CallOption adjusts a single request.
type CallOption func(*callOptions)

type callOptions struct {
    timeout time.Duration
}

// WithTimeout overrides the client's default deadline for one call.
func WithTimeout(d time.Duration) CallOption {
    return func(o *callOptions) {
        if d > 0 {
            o.timeout = d
        }
    }
}

// New validates cfg and returns a ready Client.
func New(cfg Config) (*Client, error) {
    base := NormalizeBaseURL(cfg.BaseURL)
    if base == apiPath {
        return nil, errors.New("missing base URL")
    }
    u, err := url.ParseRequestURI(base)
    if err != nil {
        return nil, fmt.Errorf("invalid base URL: %w", err)
    }
    if u.Scheme != "http" && u.Scheme != "https" {
        return nil, fmt.Errorf("invalid base URL: scheme must be http or https, got %q", u.Scheme)
    }
    if cfg.APIKey == "" {
        return nil, errors.New("missing API key")
    }
    if cfg.RateLimit < 0 {
        return nil, fmt.Errorf("invalid rate limit %v", cfg.RateLimit)
    }

    timeout := cfg.Timeout
    if timeout <= 0 {
        timeout = DefaultTimeout
    }

    ua := cfg.UserAgent
    if ua == "" {
        ua = userAgent
    }

    hc := cfg.HTTPClient
    if hc == nil {
        // Deadlines are per call via context; no client-wide Timeout.
        hc = &http.Client{}
    }

    lg := cfg.Logger
    if lg == nil {
        lg = slog.Default()
    }

    headers := make(http.Header)
    headers.Set("Authorization", "ApiKey "+cfg.APIKey)
    headers.Set("Content-Type", "application/json")
    headers.Set("User-Agent", ua)

    var limiter *rate.Limiter
    if cfg.RateLimit > 0 {
        limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
    }

    return &Client{
        baseURL:        base,
        headers:        headers,
        defaultTimeout: timeout,
        http:           hc,
        limiter:        limiter,
        logger:         lg,
    }, nil
}

// NormalizeBaseURL strips trailing slashes and makes sure the URL ends with
// exactly one /api/v1.
func NormalizeBaseURL(raw string) string {
    base := strings.TrimRight(strings.TrimSpace(raw), "/")
    if !strings.HasSuffix(base, apiPath) {
        base += apiPath
    }
    return base
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
    return c.baseURL
}

// Get issues a GET to path and decodes the envelope's results into out.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
    return c.do(ctx, http.MethodGet, path, nil, out, opts)
}

// Post issues a POST to path with body JSON-encoded (when non-nil) and
// decodes the envelope's results into out.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) error {
    return c.do(ctx, http.MethodPost, path, body, out, opts)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, opts []CallOption) error {
    o := callOptions{timeout: c.defaultTimeout}
    for _, opt := range opts {
        opt(&o)
    }

    var body io.Reader
    if payload != nil {
        encoded, err := json.Marshal(payload)
        if err != nil {
            return fmt.Errorf("encode payload: %w", err)
        }
        body = bytes.NewReader(encoded)
    }

    ctx, cancel := context.WithTimeout(ctx, o.timeout)
    defer cancel()

    req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
    if err != nil {
        return fmt.Errorf("build request: %w", err)
    }
    req.Header = c.headers.Clone()
    reqID := uuid.NewString()
    req.Header.Set("X-Request-Id", reqID)

    if c.limiter != nil {
        if err := c.limiter.Wait(ctx); err != nil {
            if errors.Is(err, context.Canceled) {
                return fmt.Errorf("rate limit: %w", err)
            }
            return fmt.Errorf("%w: %s %s waiting for rate limit", apierr.ErrTimeout, method, path)
        }
    }

    c.logger.DebugContext(ctx, "lightdash request", "method", method, "path", path, "request_id", reqID, "timeout", o.timeout)
    start := time.Now()

    resp, err := c.http.Do(req)
    if err != nil {
        if errors.Is(ctx.Err(), context.DeadlineExceeded) {
            return fmt.Errorf("%w: %s %s after %s", apierr.ErrTimeout, method, path, o.timeout)
        }
        return &apierr.UnreachableError{Method: method, Path: path, Err: err}
    }
    defer resp.Body.Close()

    c.logger.DebugContext(ctx, "lightdash response", "method", method, "path", path,
        "request_id", reqID, "status", resp.StatusCode, "duration", time.Since(start))

    if err := c.handleResponse(resp, out); err != nil {
        var apiErr *apierr.APIError
        if !errors.As(err, &apiErr) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
            return fmt.Errorf("%w: %s %s after %s", apierr.ErrTimeout, method, path, o.timeout)
        }
        return err
    }
    return nil
}

// handleResponse turns non-2xx responses into *apierr.APIError and unwraps
// the envelope of successful ones.
func (c *Client) handleResponse(resp *http.Response, out any) error {
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        var text string
        if raw, err := io.ReadAll(resp.Body); err == nil {
            text = string(raw)
        }
        return apierr.NewAPIError(resp.StatusCode, text)
    }

    var env envelope
    dec := json.NewDecoder(resp.Body)
    if err := dec.Decode(&env); err != nil {
        return fmt.Errorf("decode response: %w", err)
    }

    if out == nil || len(env.Results) == 0 {
        return nil
    }

    rdec := json.NewDecoder(bytes.NewReader(env.Results))
    rdec.UseNumber()
    if err := rdec.Decode(out); err != nil {
        return fmt.Errorf("decode results: %w", err)
    }
    return nil
}
