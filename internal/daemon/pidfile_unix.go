//go:build !windows

package daemon

import (
	"fmt"
	"syscall"
)

// IsRunning reports the recorded server and whether its process is alive.
func (p *PIDFile) IsRunning() (ServerInfo, bool) {
	info, err := p.Read()
	if err != nil {
		return info, false
	}
	// Signal 0 tests if the process exists without sending a signal.
	err = syscall.Kill(info.PID, 0)
	return info, err == nil
}

// Signal sends sig to the recorded server process.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	info, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	return syscall.Kill(info.PID, sig)
}
