// Package sysmon samples host-wide CPU and memory figures shown alongside
// the partition plan.
package sysmon

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Stats holds a single snapshot of the host.
type Stats struct {
	LogicalCPUs   int
	CPUPercent    float64 // 0.0 .. 100.0
	MemPercent    float64 // 0.0 .. 100.0
	TotalMemBytes uint64
}

// Sample collects one snapshot. CPU uses interval=0 (delta since last call).
// Fields that cannot be read are left zero.
func Sample() Stats {
	var s Stats
	if n, err := cpu.Counts(true); err == nil {
		s.LogicalCPUs = n
	}
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		s.CPUPercent = pcts[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil && vmem != nil {
		s.MemPercent = vmem.UsedPercent
		s.TotalMemBytes = vmem.Total
	}
	return s
}

// Oversubscribed reports whether workers exceeds the logical CPU count.
// It is false when the count is unknown.
func (s Stats) Oversubscribed(workers int) bool {
	return s.LogicalCPUs > 0 && workers > s.LogicalCPUs
}
