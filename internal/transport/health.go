package transport

import (
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/pkg/types"
)

var startTime = time.Now()

// versionJSON returns server version information as JSON
func versionJSON(name, version string) string {
    return fmt.Sprintf(`{"name":%q,"version":%q,"mcp_version":"1.0"}`, name, version)
}

// registerHealthAndVersion adds health and version endpoints to the router.
// /health?upstream=true also checks that Lightdash answers.
func registerHealthAndVersion(r chi.Router, opts Options) {
    lg := opts.logger()

    r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
        health := types.Health{
            Status:        types.StatusHealthy,
            UptimeSeconds: int(time.Since(startTime).Seconds()),
        }

        if opts.Process != nil {
            stats, err := opts.Process.Collect(req.Context())
            if err != nil {
                lg.Warn("collect process stats", "error", err)
            } else {
                health.Process = stats
            }
        }

        code := http.StatusOK
        if deep, _ := strconv.ParseBool(req.URL.Query().Get("upstream")); deep && opts.Upstream != nil {
            check := opts.Upstream.CheckUpstream(req.Context())
            health.Checks = append(health.Checks, check)
            if check.Status != types.StatusHealthy {
                health.Status = types.StatusUnhealthy
                code = http.StatusServiceUnavailable
            }
        }

        w.Header().Set("Content-Type", "application/json")
        w.WriteHeader(code)
        _ = json.NewEncoder(w).Encode(health)
    })

    r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
        w.Header().Set("Content-Type", "application/json")
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte(versionJSON(opts.Name, opts.Version)))
    })
}
