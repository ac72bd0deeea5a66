package types

import (
    "time"
)

// Health status values
const (
    StatusHealthy   = "healthy"
    StatusUnhealthy = "unhealthy"
)

// Health represents the /health endpoint payload
type Health struct {
    Status        string              `json:"status"`
    UptimeSeconds int                 `json:"uptime_seconds"`
    Process       *ProcessStats       `json:"process,omitempty"`
    Checks        []HealthCheckResult `json:"checks,omitempty"`
}

// ProcessStats represents resource usage of the server process
type ProcessStats struct {
    PID           int32   `json:"pid"`
    CPUPercent    float64 `json:"cpu_percent"`
    MemoryPercent float32 `json:"memory_percent"`
    MemoryRSS     uint64  `json:"memory_rss"`
    MemoryVMS     uint64  `json:"memory_vms"`
    Threads       int32   `json:"threads"`
    Goroutines    int     `json:"goroutines"`
    OpenFiles     int     `json:"open_files,omitempty"`
}

// HealthCheckResult represents the result of a single dependency check
type HealthCheckResult struct {
    ServiceName  string    `json:"service_name"`
    Status       string    `json:"status"`
    Message      string    `json:"message"`
    Version      string    `json:"version,omitempty"`
    ResponseTime int64     `json:"response_time_ms"`
    Timestamp    time.Time `json:"timestamp"`
}
