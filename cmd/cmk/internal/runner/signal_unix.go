//go:build unix

package runner

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Signals are the parent signals forwarded to the child as cancellation.
var Signals = []os.Signal{os.Interrupt, unix.SIGTERM, unix.SIGHUP}

func terminate(p *os.Process) error {
	return p.Signal(unix.SIGTERM)
}

func signaled(state *os.ProcessState) (int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return int(ws.Signal()), true
}
