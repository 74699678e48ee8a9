package youtube

import (
	"fmt"
	"io"
	"strings"
)

// section prints a ruled title block; summary lines get their own closing rule.
func section(w io.Writer, title string, summary ...string) {
	rule := strings.Repeat("=", reportWidth)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, title, rule)
	if len(summary) > 0 {
		for _, l := range summary {
			fmt.Fprintln(w, l)
		}
		fmt.Fprintln(w, rule)
	}
	fmt.Fprintln(w)
}

func empty(w io.Writer, msg string) {
	fmt.Fprintf(w, "\n%s\n\n", msg)
}

func dashes(widths ...int) string {
	parts := make([]string, len(widths))
	for i, n := range widths {
		parts[i] = strings.Repeat("-", n)
	}
	return strings.Join(parts, " ")
}

// formatDuration renders seconds as M:SS.
func formatDuration(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// formatMinutes renders watch time in hours from an hour up, else minutes.
func formatMinutes(minutes float64) string {
	if minutes >= 60 {
		return fmt.Sprintf("%.1fh", minutes/60)
	}
	return fmt.Sprintf("%.0fm", minutes)
}

func signed(n int64) string {
	if n >= 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

func netSubs(r Row) int64 {
	return int64(r.num("subscribersGained") - r.num("subscribersLost"))
}

func total(rows []Row, key string) float64 {
	var sum float64
	for _, r := range rows {
		sum += r.num(key)
	}
	return sum
}

func share(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// WriteChannelStats prints daily channel metrics with period totals.
func WriteChannelStats(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		empty(w, "No channel data available.")
		return
	}
	var subs int64
	for _, r := range rows {
		subs += netSubs(r)
	}
	section(w, "Channel Daily Stats",
		"  Total Views: "+FormatCount(total(rows, "views")),
		"  Watch Time:  "+formatMinutes(total(rows, "estimatedMinutesWatched")),
		"  Net Subs:    "+signed(subs),
	)

	fmt.Fprintf(w, "%-12s %8s %8s %8s %6s\n", "Date", "Views", "Watch", "Avg Dur", "Subs")
	fmt.Fprintln(w, dashes(12, 8, 8, 8, 6))
	for _, r := range rows {
		fmt.Fprintf(w, "%-12s %8s %8s %8s %6s\n",
			r.str("day", ""),
			FormatCount(r.num("views")),
			formatMinutes(r.num("estimatedMinutesWatched")),
			formatDuration(r.num("averageViewDuration")),
			signed(netSubs(r)))
	}
	fmt.Fprintln(w)
}

// WriteTopVideos prints videos ranked by views.
func WriteTopVideos(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		empty(w, "No video data available.")
		return
	}
	section(w, "Top Videos by Views")
	for i, r := range rows {
		fmt.Fprintf(w, "%2d. %s\n", i+1, r.str("video", "?"))
		fmt.Fprintf(w, "    Views: %s | Watch: %s | Avg: %s (%.0f%%)\n",
			FormatCount(r.num("views")),
			formatMinutes(r.num("estimatedMinutesWatched")),
			formatDuration(r.num("averageViewDuration")),
			r.num("averageViewPercentage"))
		fmt.Fprintf(w, "    Likes: %s | Shares: %s | Subs: %s\n\n",
			FormatCount(r.num("likes")),
			FormatCount(r.num("shares")),
			signed(netSubs(r)))
	}
}

// WriteVideoDaily prints one video's daily metrics.
func WriteVideoDaily(w io.Writer, videoID string, rows []Row) {
	if len(rows) == 0 {
		empty(w, fmt.Sprintf("No data for video %s.", videoID))
		return
	}
	section(w, "Video: "+videoID,
		"  Total Views: "+FormatCount(total(rows, "views")),
		"  Watch Time:  "+formatMinutes(total(rows, "estimatedMinutesWatched")),
	)

	fmt.Fprintf(w, "%-12s %8s %8s %8s %6s %6s %6s\n", "Date", "Views", "Watch", "Avg Dur", "Avg %", "Likes", "Shares")
	fmt.Fprintln(w, dashes(12, 8, 8, 8, 6, 6, 6))
	for _, r := range rows {
		fmt.Fprintf(w, "%-12s %8s %8s %8s %5.0f%% %6s %6s\n",
			r.str("day", ""),
			FormatCount(r.num("views")),
			formatMinutes(r.num("estimatedMinutesWatched")),
			formatDuration(r.num("averageViewDuration")),
			r.num("averageViewPercentage"),
			FormatCount(r.num("likes")),
			FormatCount(r.num("shares")))
	}
	fmt.Fprintln(w)
}

// WriteTrafficSources prints views per traffic source with their share.
func WriteTrafficSources(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		empty(w, "No traffic source data available.")
		return
	}
	views := total(rows, "views")
	section(w, "Traffic Sources")

	fmt.Fprintf(w, "%-30s %10s %6s %8s\n", "Source", "Views", "%", "Watch")
	fmt.Fprintln(w, dashes(30, 10, 6, 8))
	for _, r := range rows {
		fmt.Fprintf(w, "%-30s %10s %5.1f%% %8s\n",
			r.str("insightTrafficSourceType", "?"),
			FormatCount(r.num("views")),
			share(r.num("views"), views),
			formatMinutes(r.num("estimatedMinutesWatched")))
	}
	fmt.Fprintln(w)
}

// WriteSearchTerms prints the search terms that drove views.
func WriteSearchTerms(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		empty(w, "No search term data available.")
		return
	}
	section(w, "YouTube Search Terms")

	fmt.Fprintf(w, "%-40s %8s %8s\n", "Term", "Views", "Watch")
	fmt.Fprintln(w, dashes(40, 8, 8))
	for _, r := range rows {
		term := []rune(r.str("insightTrafficSourceDetail", "?"))
		if len(term) > 38 {
			term = append(term[:35], []rune("...")...)
		}
		fmt.Fprintf(w, "%-40s %8s %8s\n",
			string(term),
			FormatCount(r.num("views")),
			formatMinutes(r.num("estimatedMinutesWatched")))
	}
	fmt.Fprintln(w)
}

// WriteDemographics prints viewer share by age group and gender.
func WriteDemographics(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		empty(w, "No demographic data available (channel may be too small).")
		return
	}
	section(w, "Viewer Demographics")

	fmt.Fprintf(w, "%-12s %-10s %10s\n", "Age Group", "Gender", "Viewers %")
	fmt.Fprintln(w, dashes(12, 10, 10))
	for _, r := range rows {
		fmt.Fprintf(w, "%-12s %-10s %9.1f%%\n",
			r.str("ageGroup", "?"), r.str("gender", "?"), r.num("viewerPercentage"))
	}
	fmt.Fprintln(w)
}

// WriteRetention prints a video's retention curve against similar videos.
func WriteRetention(w io.Writer, videoID string, rows []Row) {
	if len(rows) == 0 {
		empty(w, fmt.Sprintf("No retention data for video %s.", videoID))
		return
	}
	section(w, "Audience Retention: "+videoID)

	fmt.Fprintf(w, "%10s %10s %10s\n", "Position", "Retention", "vs Similar")
	fmt.Fprintln(w, dashes(10, 10, 10))
	for _, r := range rows {
		relative := fmt.Sprintf("%.2f", r.num("relativeRetentionPerformance"))
		if r.num("relativeRetentionPerformance") > 0 {
			relative = "+" + relative
		}
		fmt.Fprintf(w, "%10s %10s %10s\n",
			fmt.Sprintf("%.0f%%", r.num("elapsedVideoTimeRatio")*100),
			fmt.Sprintf("%.1f%%", r.num("audienceWatchRatio")*100),
			relative)
	}
	fmt.Fprintln(w)
}

// WriteGeography prints views per country with their share.
func WriteGeography(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		empty(w, "No geographic data available.")
		return
	}
	views := total(rows, "views")
	section(w, "Views by Country")

	fmt.Fprintf(w, "%-10s %10s %6s %8s\n", "Country", "Views", "%", "Watch")
	fmt.Fprintln(w, dashes(10, 10, 6, 8))
	for _, r := range rows {
		fmt.Fprintf(w, "%-10s %10s %5.1f%% %8s\n",
			r.str("country", "?"),
			FormatCount(r.num("views")),
			share(r.num("views"), views),
			formatMinutes(r.num("estimatedMinutesWatched")))
	}
	fmt.Fprintln(w)
}

// WriteRevenue prints daily revenue with the period total.
func WriteRevenue(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		empty(w, "No revenue data available (channel may not be monetized).")
		return
	}
	section(w, "Revenue", fmt.Sprintf("  Total Estimated Revenue: $%.2f", total(rows, "estimatedRevenue")))

	fmt.Fprintf(w, "%-12s %10s %10s %10s %8s\n", "Date", "Revenue", "Ad Rev", "Gross", "CPM")
	fmt.Fprintln(w, dashes(12, 10, 10, 10, 8))
	for _, r := range rows {
		fmt.Fprintf(w, "%-12s $%9.2f $%9.2f $%9.2f $%7.2f\n",
			r.str("day", ""),
			r.num("estimatedRevenue"),
			r.num("estimatedAdRevenue"),
			r.num("grossRevenue"),
			r.num("cpm"))
	}
	fmt.Fprintln(w)
}
