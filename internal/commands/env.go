package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"taskrelay/internal/config"
)

func init() {
	for _, c := range []*cobra.Command{WorkerCmd, AirtableCmd, YouTubeCmd, DoctorCmd} {
		c.PersistentFlags().String("env-file", "", "Dotenv file with credentials (default "+config.DefaultEnvFile+")")
	}
}

// loadEnv exports the dotenv file named by --env-file into the environment.
func loadEnv(cmd *cobra.Command) error {
	var path string
	if f := cmd.Flag("env-file"); f != nil {
		path = f.Value.String()
	}
	_, err := config.LoadEnvFile(path)
	return err
}

// signalContext returns a context cancelled on the first interrupt or
// termination signal.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		defer signal.Stop(ch)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
