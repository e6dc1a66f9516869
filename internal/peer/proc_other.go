//go:build !unix

package peer

import (
	"errors"
	"os/exec"
)

type signal int

const (
	sigTerm signal = iota
	sigKill
)

func setProcessGroup(*exec.Cmd) {}

func signalGroup(cmd *exec.Cmd, _ signal) error {
	if cmd == nil || cmd.Process == nil {
		return errors.New("peer not started")
	}
	return cmd.Process.Kill()
}
