//go:build windows

package progress

import "os"

// statusSignals is empty on Windows, which has no SIGUSR1 analogue; the
// status signal handler is simply never installed on this platform.
func statusSignals() []os.Signal {
	return nil
}
