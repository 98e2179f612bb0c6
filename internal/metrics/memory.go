package metrics

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessMemory is the memory footprint of the current process in kilobytes.
type ProcessMemory struct {
	VirtualKB  uint64
	PhysicalKB uint64
}

const procStatusPath = "/proc/self/status"

var errNoVmFields = errors.New("VmSize/VmRSS not found")

// QueryProcessMemory reads VmSize and VmRSS from /proc/self/status. Where
// procfs is unavailable it falls back to gopsutil.
func QueryProcessMemory() (ProcessMemory, error) {
	f, err := os.Open(procStatusPath)
	if err == nil {
		defer f.Close()
		if pm, perr := parseProcStatus(f); perr == nil {
			return pm, nil
		}
	}
	return queryGopsutil()
}

func queryGopsutil() (ProcessMemory, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return ProcessMemory{}, fmt.Errorf("process memory: %w", err)
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return ProcessMemory{}, fmt.Errorf("process memory: %w", err)
	}
	return ProcessMemory{VirtualKB: info.VMS / 1024, PhysicalKB: info.RSS / 1024}, nil
}

// parseProcStatus extracts the VmSize and VmRSS lines ("VmSize:  1234 kB").
func parseProcStatus(r io.Reader) (ProcessMemory, error) {
	var pm ProcessMemory
	var seenSize, seenRSS bool
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok || (key != "VmSize" && key != "VmRSS") {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return ProcessMemory{}, fmt.Errorf("parse %s: %w", key, err)
		}
		if key == "VmSize" {
			pm.VirtualKB, seenSize = v, true
		} else {
			pm.PhysicalKB, seenRSS = v, true
		}
	}
	if err := sc.Err(); err != nil {
		return ProcessMemory{}, err
	}
	if !seenSize || !seenRSS {
		return ProcessMemory{}, errNoVmFields
	}
	return pm, nil
}

// RuntimeSnapshot holds a point-in-time Go heap reading.
type RuntimeSnapshot struct {
	HeapAlloc uint64 // bytes in use by application
	Sys       uint64 // total bytes obtained from OS
	NumGC     uint32 // number of completed GC cycles
}

// ReadRuntime reads the current Go runtime memory statistics.
func ReadRuntime() RuntimeSnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeSnapshot{HeapAlloc: m.HeapAlloc, Sys: m.Sys, NumGC: m.NumGC}
}
