//go:build unix

package metrics

import (
	"time"

	"golang.org/x/sys/unix"
)

func readCPUUsage() (CPUUsage, error) {
	var self, children unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &self); err != nil {
		return CPUUsage{}, err
	}
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &children); err != nil {
		return CPUUsage{}, err
	}
	return CPUUsage{
		User:   timeval(self.Utime) + timeval(children.Utime),
		System: timeval(self.Stime) + timeval(children.Stime),
	}, nil
}

func timeval(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Nano())
}
