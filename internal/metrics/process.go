package metrics

import (
    "context"
    "fmt"
    "os"
    "runtime"
    "sync"
    "time"

    "github.com/shirou/gopsutil/v3/cpu"
    "github.com/shirou/gopsutil/v3/process"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/pkg/types"
)

// ProcessCollector reports resource usage of the running server. It is safe
// for concurrent use.
type ProcessCollector struct {
    mu       sync.Mutex
    proc     *process.Process
    lastCPU  *cpu.TimesStat
    lastTime time.Time
}

// NewProcessCollector creates a collector for the current process
func NewProcessCollector() (*ProcessCollector, error) {
    p, err := process.NewProcess(int32(os.Getpid()))
    if err != nil {
        return nil, fmt.Errorf("open own process: %w", err)
    }
    return &ProcessCollector{proc: p}, nil
}

// Collect samples the process. CPU usage is measured between consecutive
// calls; the first call reports the lifetime average.
func (pc *ProcessCollector) Collect(ctx context.Context) (*types.ProcessStats, error) {
    pc.mu.Lock()
    defer pc.mu.Unlock()

    memInfo, err := pc.proc.MemoryInfoWithContext(ctx)
    if err != nil {
        return nil, err
    }

    memPercent, err := pc.proc.MemoryPercentWithContext(ctx)
    if err != nil {
        memPercent = 0.0
    }

    threads, err := pc.proc.NumThreadsWithContext(ctx)
    if err != nil {
        threads = 0
    }

    var openFiles int
    if files, err := pc.proc.OpenFilesWithContext(ctx); err == nil {
        openFiles = len(files)
    }

    cpuPercent, err := pc.proc.CPUPercentWithContext(ctx)
    if err != nil {
        cpuPercent = 0.0
    }
    now := time.Now()
    if times, err := pc.proc.TimesWithContext(ctx); err == nil {
        if pc.lastCPU != nil {
            cpuPercent = calculateCPUUsage(*pc.lastCPU, *times, now.Sub(pc.lastTime))
        }
        pc.lastCPU = times
        pc.lastTime = now
    }

    return &types.ProcessStats{
        PID:           pc.proc.Pid,
        CPUPercent:    cpuPercent,
        MemoryPercent: memPercent,
        MemoryRSS:     memInfo.RSS,
        MemoryVMS:     memInfo.VMS,
        Threads:       threads,
        Goroutines:    runtime.NumGoroutine(),
        OpenFiles:     openFiles,
    }, nil
}

// calculateCPUUsage returns the share of one CPU spent busy between two
// samples taken elapsed apart.
func calculateCPUUsage(t1, t2 cpu.TimesStat, elapsed time.Duration) float64 {
    busy1 := t1.User + t1.System + t1.Iowait
    busy2 := t2.User + t2.System + t2.Iowait

    if busy2 <= busy1 || elapsed <= 0 {
        return 0.0
    }

    return 100.0 * (busy2 - busy1) / elapsed.Seconds()
}
