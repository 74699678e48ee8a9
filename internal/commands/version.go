package commands

import (
	"fmt"
	"io"
)

// Version information, set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func RunVersion(w io.Writer) {
	fmt.Fprintf(w, "taskrelay version %s (commit %s, built %s)\n", Version, Commit, Date)
}
