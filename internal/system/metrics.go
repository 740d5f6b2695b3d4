// Package system samples host resource usage for the health endpoint.
package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

type Metrics struct {
	CPUUsagePercent    float64 `json:"cpu_usage_percent"`
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
	MemoryUsedBytes    uint64  `json:"memory_used_bytes"`
	MemoryTotalBytes   uint64  `json:"memory_total_bytes"`
	LoadAvg1m          float64 `json:"load_1m"`
	LoadAvg5m          float64 `json:"load_5m"`
	LoadAvg15m         float64 `json:"load_15m"`
	Goroutines         int     `json:"goroutines"`
}

// Collect samples the host. Individual probes that fail leave their fields at zero.
func Collect() *Metrics {
	m := &Metrics{Goroutines: runtime.NumGoroutine()}

	cpuPercent, err := cpu.Percent(0, false)
	if err == nil && len(cpuPercent) > 0 {
		m.CPUUsagePercent = cpuPercent[0]
	}

	memStats, err := mem.VirtualMemory()
	if err == nil {
		m.MemoryUsagePercent = memStats.UsedPercent
		m.MemoryUsedBytes = memStats.Used
		m.MemoryTotalBytes = memStats.Total
	}

	// not available on windows
	loadStats, err := load.Avg()
	if err == nil {
		m.LoadAvg1m = loadStats.Load1
		m.LoadAvg5m = loadStats.Load5
		m.LoadAvg15m = loadStats.Load15
	}

	return m
}
