//go:build !unix

package procs

import (
	"os"
	"syscall"
)

// procGroup tracks children individually where process groups are not
// available.
type procGroup struct {
	procs []*os.Process
}

func (g *procGroup) sysProcAttr() *syscall.SysProcAttr { return nil }

func (g *procGroup) add(p *os.Process) { g.procs = append(g.procs, p) }

func (g *procGroup) kill() error {
	var first error
	for _, p := range g.procs {
		if err := p.Kill(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
