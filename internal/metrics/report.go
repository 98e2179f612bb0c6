package metrics

import "time"

// Report is the resource summary of one dispatch.
type Report struct {
	Runtime time.Duration
	CPU     CPUUsage
	Memory  ProcessMemory
	Workers int
}

// Span measures the wall time and CPU time between Begin and End.
type Span struct {
	start time.Time
	usage CPUUsage
	err   error
}

// Begin starts a measurement.
func Begin() *Span {
	u, err := ReadCPUUsage()
	return &Span{start: time.Now(), usage: u, err: err}
}

// End stops the measurement and samples the process memory. CPU or memory
// query failures leave those fields zero and are returned alongside the
// partial report.
func (s *Span) End(workers int) (Report, error) {
	r := Report{Runtime: time.Since(s.start), Workers: workers}

	err := s.err
	if err == nil {
		var now CPUUsage
		if now, err = ReadCPUUsage(); err == nil {
			r.CPU = now.Sub(s.usage)
		}
	}
	mem, merr := QueryProcessMemory()
	r.Memory = mem
	if err == nil {
		err = merr
	}
	return r, err
}
