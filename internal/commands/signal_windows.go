//go:build windows

package commands

import (
	"os"
	"os/signal"
)

// notifySignals registers ch for interrupt signals. Windows has no SIGTERM.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
