package metrics

import "time"

// CPUUsage is accumulated CPU time.
type CPUUsage struct {
	User   time.Duration
	System time.Duration
}

// Sub returns u - o.
func (u CPUUsage) Sub(o CPUUsage) CPUUsage {
	return CPUUsage{User: u.User - o.User, System: u.System - o.System}
}

// ReadCPUUsage returns the CPU time consumed so far by this process plus its
// reaped children.
func ReadCPUUsage() (CPUUsage, error) {
	return readCPUUsage()
}
