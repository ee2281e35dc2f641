// Package health reports process self-statistics for the status endpoint.
package health

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

var startedAt = time.Now()

// Stats is the process section of the /api/status payload.
type Stats struct {
	UptimeSeconds int64   `json:"uptimeSeconds"`
	Goroutines    int     `json:"goroutines"`
	RSSBytes      uint64  `json:"rssBytes,omitempty"`
	CPUPercent    float64 `json:"cpuPercent,omitempty"`
}

// Collect gathers current process stats. RSS and CPU come from the OS via
// gopsutil and are omitted when the lookup fails; uptime and goroutine count
// are always present.
func Collect() Stats {
	s := Stats{
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return s
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		s.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}
	return s
}
