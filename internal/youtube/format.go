package youtube

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const reportWidth = 60

var grouped = message.NewPrinter(language.English)

// FormatCount abbreviates large numbers: 1.2M, 45.0K, 999.
func FormatCount(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", n/1_000)
	default:
		return fmt.Sprintf("%d", int64(n))
	}
}

func banner(w io.Writer, lines ...string) {
	rule := strings.Repeat("=", reportWidth)
	fmt.Fprintf(w, "\n%s\n", rule)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

// WriteChannelVideos prints the ten highest-scoring videos.
func WriteChannelVideos(w io.Writer, r ChannelVideos) {
	banner(w,
		"Channel: "+r.ChannelName,
		fmt.Sprintf("Period: Last %d days", r.PeriodDays),
		fmt.Sprintf("Videos: %d", r.TotalVideos),
		"Avg Views: "+FormatCount(r.AvgViews),
	)
	if len(r.Videos) == 0 {
		fmt.Fprintln(w, "No videos found in this period.")
		return
	}

	fmt.Fprint(w, "Top Videos by Outlier Score:\n\n")
	for i, v := range r.Videos[:min(10, len(r.Videos))] {
		var score float64
		if v.OutlierScore != nil {
			score = *v.OutlierScore
		}
		tag := ""
		if v.IsOutlier != nil && *v.IsOutlier {
			tag = fmt.Sprintf("[OUTLIER %.1fx]", score)
		}
		fmt.Fprintf(w, "%d. %s\n", i+1, v.Title)
		fmt.Fprintf(w, "   Views: %s | Engagement: %.2f%% | Score: %.2f %s\n",
			FormatCount(float64(v.ViewCount)), v.EngagementRate*100, score, tag)
		fmt.Fprintf(w, "   %s\n\n", v.URL)
	}
}

// WriteSearch prints the search summary and the first ten videos.
func WriteSearch(w io.Writer, r SearchResult) {
	banner(w,
		"Search: "+r.Query,
		grouped.Sprintf("Results: %d", r.TotalResults),
		"Avg Views: "+FormatCount(r.AvgViews),
	)
	if len(r.TopChannels) > 0 {
		fmt.Fprintln(w, "Top Channels:")
		for _, ch := range r.TopChannels {
			fmt.Fprintf(w, "  - %s (%d videos)\n", ch.Name, ch.VideoCount)
		}
		fmt.Fprintln(w)
	}
	if len(r.Videos) == 0 {
		fmt.Fprintln(w, "No videos found.")
		return
	}

	fmt.Fprint(w, "Videos:\n\n")
	for i, v := range r.Videos[:min(10, len(r.Videos))] {
		fmt.Fprintf(w, "%d. %s\n", i+1, v.Title)
		fmt.Fprintf(w, "   Channel: %s | Views: %s\n", v.ChannelName, FormatCount(float64(v.ViewCount)))
		fmt.Fprintf(w, "   %s\n\n", v.URL)
	}
}

// WriteTranscript prints transcript metadata followed by the text.
func WriteTranscript(w io.Writer, t Transcript) {
	banner(w,
		"Video ID: "+t.VideoID,
		"Language: "+t.Language,
		fmt.Sprintf("Generated: %t", t.IsGenerated),
	)
	fmt.Fprintln(w, t.Transcript)
}
