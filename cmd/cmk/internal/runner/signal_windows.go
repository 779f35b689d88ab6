//go:build windows

package runner

import "os"

// Signals are the parent signals forwarded to the child as cancellation.
var Signals = []os.Signal{os.Interrupt}

func terminate(p *os.Process) error {
	return p.Kill()
}

func signaled(*os.ProcessState) (int, bool) {
	return 0, false
}
