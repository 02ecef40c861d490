//go:build windows

package app

import (
	"os"
)

var shutdownSignals = []os.Signal{os.Interrupt}

// terminate kills the daemon outright; Windows has no SIGTERM.
func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

// processExists reports whether pid is alive. FindProcess opens a handle and
// fails for processes that have exited.
func processExists(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}
