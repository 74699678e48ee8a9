package commands

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"taskrelay/internal/config"
	"taskrelay/internal/output"
	"taskrelay/internal/youtube"
)

// youtubeOptions is adjusted by tests to reach a local server.
var youtubeOptions = youtube.Options{}

// youtubePrinter prints results and errors of youtube subcommands to stdout.
func youtubePrinter(cmd *cobra.Command) *output.Printer {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return &output.Printer{
		Out:    cmd.OutOrStdout(),
		Err:    cmd.OutOrStdout(),
		JSON:   jsonOut,
		Indent: "  ",
	}
}

// newYouTubeRun returns the API key client and printer for a research
// subcommand.
func newYouTubeRun(cmd *cobra.Command) (*youtube.Client, *output.Printer, error) {
	p := youtubePrinter(cmd)
	if err := loadEnv(cmd); err != nil {
		return nil, p, p.Fail(err)
	}
	key, err := config.Require(config.EnvYouTubeKey)
	if err != nil {
		return nil, p, p.Fail(err)
	}

	opts := youtubeOptions
	opts.APIKey = key
	opts.SupadataKey = strings.TrimSpace(os.Getenv(config.EnvSupadataKey))
	return youtube.New(opts), p, nil
}

// RunChannelVideos prints a channel's recent uploads ranked by outlier score.
func RunChannelVideos(cmd *cobra.Command, channel string, days, maxResults int) error {
	client, p, err := newYouTubeRun(cmd)
	if err != nil {
		return err
	}
	info, err := client.ResolveChannel(cmd.Context(), channel)
	if err != nil {
		return p.Fail(err)
	}
	result, err := client.ChannelVideos(cmd.Context(), info.ChannelID, days, maxResults)
	if err != nil {
		return p.Fail(err)
	}
	return p.Print(result, func(w io.Writer) { youtube.WriteChannelVideos(w, result) })
}

// RunSearch prints search results with view averages and top channels.
func RunSearch(cmd *cobra.Command, query string, maxResults, days int, order string) error {
	client, p, err := newYouTubeRun(cmd)
	if err != nil {
		return err
	}
	result, err := client.Search(cmd.Context(), youtube.SearchOptions{
		Query:      query,
		MaxResults: maxResults,
		DaysBack:   days,
		Order:      order,
	})
	if err != nil {
		return p.Fail(err)
	}
	return p.Print(result, func(w io.Writer) { youtube.WriteSearch(w, result) })
}

// RunTranscript prints a video's transcript.
func RunTranscript(cmd *cobra.Command, video string, maxChars int) error {
	client, p, err := newYouTubeRun(cmd)
	if err != nil {
		return err
	}
	t, err := client.Transcript(cmd.Context(), video, maxChars)
	if err != nil {
		return p.Fail(err)
	}
	return p.Print(t, func(w io.Writer) { youtube.WriteTranscript(w, t) })
}
