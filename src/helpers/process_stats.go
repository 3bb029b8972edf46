package helpers

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessStats is a point-in-time view of this process' resource usage
type ProcessStats struct {
	RSSMB      float64
	CPUPercent float64
}

// -----------------------------------------------------------------------------

// GetProcessStats reads RSS and CPU usage of the current process.
// Fields the platform does not expose stay zero.
func GetProcessStats() (ProcessStats, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return ProcessStats{}, fmt.Errorf("failed to inspect process: %w", err)
	}

	var stats ProcessStats
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSMB = float64(mem.RSS) / 1024 / 1024
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats, nil
}
