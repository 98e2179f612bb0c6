//go:build !unix

package metrics

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// readCPUUsage covers only the current process where getrusage is missing.
func readCPUUsage() (CPUUsage, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return CPUUsage{}, err
	}
	t, err := p.Times()
	if err != nil {
		return CPUUsage{}, err
	}
	return CPUUsage{
		User:   time.Duration(t.User * float64(time.Second)),
		System: time.Duration(t.System * float64(time.Second)),
	}, nil
}
