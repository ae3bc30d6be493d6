//go:build !unix

package cmd

import "os"

// No user signals here; pause and resume go through the fleet commands.
var (
	pauseSignal  os.Signal
	resumeSignal os.Signal

	controlSignals = []os.Signal{os.Interrupt}
)
