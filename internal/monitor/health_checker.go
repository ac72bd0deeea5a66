package monitor

import (
    "context"
    "fmt"
    "time"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/apierr"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/lightdash"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/pkg/types"
)

const (
    serviceName    = "lightdash"
    defaultTimeout = 10 * time.Second
)

// Getter is the part of the Lightdash client the checker needs.
type Getter interface {
    Get(ctx context.Context, path string, out any, opts ...lightdash.CallOption) error
}

// HealthChecker checks that the Lightdash instance is reachable
type HealthChecker struct {
    api     Getter
    timeout time.Duration
}

// NewHealthChecker creates a new health checker. A non-positive timeout
// means 10s.
func NewHealthChecker(api Getter, timeout time.Duration) *HealthChecker {
    if timeout <= 0 {
        timeout = defaultTimeout
    }
    return &HealthChecker{api: api, timeout: timeout}
}

// CheckUpstream calls the Lightdash health endpoint. It never fails; problems
// are reported in the result with a sanitized message.
func (hc *HealthChecker) CheckUpstream(ctx context.Context) types.HealthCheckResult {
    startTime := time.Now()

    result := types.HealthCheckResult{
        ServiceName: serviceName,
        Timestamp:   startTime,
    }

    var status lightdash.HealthStatus
    err := hc.api.Get(ctx, "/health", &status, lightdash.WithTimeout(hc.timeout))
    result.ResponseTime = time.Since(startTime).Milliseconds()

    switch {
    case err != nil:
        result.Status = types.StatusUnhealthy
        result.Message = apierr.Format(err)
    case !status.Healthy:
        result.Status = types.StatusUnhealthy
        result.Message = "lightdash reports unhealthy"
        result.Version = status.Version
    default:
        result.Status = types.StatusHealthy
        result.Message = fmt.Sprintf("lightdash %s reachable", status.Version)
        result.Version = status.Version
    }
    return result
}
