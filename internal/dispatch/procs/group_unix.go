//go:build unix

package procs

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// procGroup is the process group shared by every child of one dispatch. The
// first child started becomes the group leader.
type procGroup struct {
	pgid int
}

func (g *procGroup) sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true, Pgid: g.pgid}
}

func (g *procGroup) add(p *os.Process) {
	if g.pgid == 0 {
		g.pgid = p.Pid
	}
}

// kill sends SIGKILL to every member of the group.
func (g *procGroup) kill() error {
	if g.pgid == 0 {
		return nil
	}
	err := unix.Kill(-g.pgid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
