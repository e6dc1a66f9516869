//go:build unix

package peer

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

type signal = unix.Signal

const (
	sigTerm = unix.SIGTERM
	sigKill = unix.SIGKILL
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup signals the peer's process group, falling back to the process.
func signalGroup(cmd *exec.Cmd, sig signal) error {
	if cmd == nil || cmd.Process == nil {
		return errors.New("peer not started")
	}
	pid := cmd.Process.Pid
	if pgid, err := unix.Getpgid(pid); err == nil && pgid > 0 {
		if err := unix.Kill(-pgid, sig); err == nil {
			return nil
		}
	}
	if err := unix.Kill(pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
