//go:build !windows

package commands

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals registers ch for interrupt and termination signals.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
