package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskrelay/internal/commands"
	"taskrelay/internal/output"
)

var rootCmd = &cobra.Command{
	Use:   "taskrelay",
	Short: "Relay Todoist tasks to a coding agent",
	Long: "taskrelay polls a Todoist project and dispatches each task to the Claude CLI, " +
		"and bundles small Airtable and YouTube research clients.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(commands.WorkerCmd)
	rootCmd.AddCommand(commands.AirtableCmd)
	rootCmd.AddCommand(commands.YouTubeCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, output.ErrReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
