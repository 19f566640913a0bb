package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"Whispen/pkg/scheduler"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is one snapshot of the host as seen by the service.
type SystemStats struct {
	Timestamp time.Time    `json:"timestamp"`
	Disk      DiskStats    `json:"disk"`
	Memory    MemoryStats  `json:"memory"`
	Runtime   RuntimeStats `json:"runtime"`
}

// DiskStats describes the filesystem holding the temp folder.
type DiskStats struct {
	Path         string  `json:"path"`
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	Free         uint64  `json:"free"`
	UsagePercent float64 `json:"usage_percent"`
}

type MemoryStats struct {
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	UsagePercent float64 `json:"usage_percent"`
}

type RuntimeStats struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
}

// SystemMonitor samples disk usage of the temp folder and process state on
// a fixed interval and publishes the samples as gauges.
type SystemMonitor struct {
	mu        sync.RWMutex
	path      string
	interval  time.Duration
	metrics   *Metrics
	latest    *SystemStats
	sched     *scheduler.Scheduler
	isRunning bool
}

// NewSystemMonitor creates a monitor for the filesystem holding path.
func NewSystemMonitor(path string, interval time.Duration, m *Metrics) *SystemMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SystemMonitor{
		path:     path,
		interval: interval,
		metrics:  m,
	}
}

// Start collects one sample immediately, then one per interval.
func (sm *SystemMonitor) Start() {
	sm.mu.Lock()
	if sm.isRunning {
		sm.mu.Unlock()
		return
	}
	sm.isRunning = true
	sm.sched = scheduler.New()
	sched := sm.sched
	sm.mu.Unlock()

	sm.Collect()
	sched.Every(sm.interval, scheduler.FuncJob(func(context.Context) { sm.Collect() }))
}

// Stop ends sampling. A stopped monitor can be started again.
func (sm *SystemMonitor) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.isRunning {
		return
	}
	sm.isRunning = false
	sm.sched.Stop()
	sm.sched = nil
}

// Collect takes a snapshot, stores it and updates the gauges.
func (sm *SystemMonitor) Collect() *SystemStats {
	stats := &SystemStats{Timestamp: time.Now()}

	stats.Disk = DiskUsage(sm.path)

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.Memory.Total = vm.Total
		stats.Memory.Used = vm.Used
		stats.Memory.UsagePercent = vm.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = ms.HeapAlloc

	sm.metrics.ObserveSystem(stats)

	sm.mu.Lock()
	sm.latest = stats
	sm.mu.Unlock()

	return stats
}

// GetLatestStats returns the last snapshot, or nil before the first one.
func (sm *SystemMonitor) GetLatestStats() *SystemStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.latest
}

// IsRunning reports whether the sampling loop is active.
func (sm *SystemMonitor) IsRunning() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.isRunning
}

// DiskUsage reports usage of the filesystem holding path. Zero values are
// returned when the path cannot be inspected.
func DiskUsage(path string) DiskStats {
	stats := DiskStats{Path: path}
	if u, err := disk.Usage(path); err == nil {
		stats.Total = u.Total
		stats.Used = u.Used
		stats.Free = u.Free
		stats.UsagePercent = u.UsedPercent
	}
	return stats
}
