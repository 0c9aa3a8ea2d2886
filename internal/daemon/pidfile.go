package daemon

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServerInfo is what a running `serve` process records about itself.
type ServerInfo struct {
	PID  int    `json:"pid"`
	Addr string `json:"addr"`
}

// PIDFile tracks the game server process so `serve status` and `serve stop` can find it.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process listening on addr.
func (p *PIDFile) Write(addr string) error {
	return p.WriteInfo(ServerInfo{PID: os.Getpid(), Addr: addr})
}

// WriteInfo writes info to the file.
func (p *PIDFile) WriteInfo(info ServerInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(p.Path, append(data, '\n'), 0o644)
}

// Read returns the recorded server info.
func (p *PIDFile) Read() (ServerInfo, error) {
	var info ServerInfo
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("invalid PID file content: %w", err)
	}
	if info.PID <= 0 {
		return info, fmt.Errorf("invalid PID file content: pid %d", info.PID)
	}
	return info, nil
}

// Remove deletes the PID file.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}
