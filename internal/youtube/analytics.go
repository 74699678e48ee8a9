package youtube

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"taskrelay/internal/httpclient"
)

// DefaultAnalyticsURL is the YouTube Analytics API v2 root.
const DefaultAnalyticsURL = "https://youtubeanalytics.googleapis.com/v2"

const (
	engagementMetrics = "views,estimatedMinutesWatched,averageViewDuration,averageViewPercentage," +
		"likes,shares,subscribersGained,subscribersLost"
	retentionStart = "2020-01-01"
	retentionEnd   = "2030-12-31"
)

// Row is one report row keyed by column name. Metrics decode as float64,
// dimensions as string.
type Row map[string]any

// Analytics queries the authenticated channel's reports. HTTPClient must
// authorize requests with an OAuth token holding AnalyticsScopes.
type Analytics struct {
	api *httpclient.Client
	now func() time.Time
}

// AnalyticsOptions configures NewAnalytics.
type AnalyticsOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAnalytics creates an Analytics client.
func NewAnalytics(opts AnalyticsOptions) *Analytics {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAnalyticsURL
	}
	return &Analytics{
		api: httpclient.New(httpclient.Config{
			Service:      "YouTube Analytics",
			BaseURL:      opts.BaseURL,
			Limiter:      httpclient.PerSecond(10),
			ErrorMessage: googleErrorMessage,
			HTTPClient:   opts.HTTPClient,
		}),
		now: time.Now,
	}
}

// DateRange returns the start and end dates covering the last days days.
func (a *Analytics) DateRange(days int) (string, string) {
	end := a.now().UTC()
	start := end.AddDate(0, 0, -days)
	return start.Format(time.DateOnly), end.Format(time.DateOnly)
}

type report struct {
	metrics    string
	dimensions string
	filters    string
	sort       string
	maxResults int
}

func (a *Analytics) query(ctx context.Context, start, end string, r report) ([]Row, error) {
	q := url.Values{
		"ids":       {"channel==MINE"},
		"startDate": {start},
		"endDate":   {end},
		"metrics":   {r.metrics},
	}
	if r.dimensions != "" {
		q.Set("dimensions", r.dimensions)
	}
	if r.filters != "" {
		q.Set("filters", r.filters)
	}
	if r.sort != "" {
		q.Set("sort", r.sort)
	}
	if r.maxResults > 0 {
		q.Set("maxResults", strconv.Itoa(r.maxResults))
	}

	var resp struct {
		ColumnHeaders []struct {
			Name string `json:"name"`
		} `json:"columnHeaders"`
		Rows [][]any `json:"rows"`
	}
	if err := a.api.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/reports", Query: q}, &resp); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(resp.Rows))
	for _, values := range resp.Rows {
		row := make(Row, len(resp.ColumnHeaders))
		for i, h := range resp.ColumnHeaders {
			if i < len(values) {
				row[h.Name] = values[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (a *Analytics) lastDays(ctx context.Context, days int, r report) ([]Row, error) {
	start, end := a.DateRange(days)
	return a.query(ctx, start, end, r)
}

// ChannelStats returns daily views, watch time, average view duration and
// subscriber changes, newest first.
func (a *Analytics) ChannelStats(ctx context.Context, days int) ([]Row, error) {
	return a.lastDays(ctx, days, report{
		metrics:    "views,estimatedMinutesWatched,averageViewDuration,subscribersGained,subscribersLost",
		dimensions: "day",
		sort:       "-day",
	})
}

// TopVideos returns the most viewed videos with engagement metrics.
func (a *Analytics) TopVideos(ctx context.Context, days, maxResults int) ([]Row, error) {
	return a.lastDays(ctx, days, report{
		metrics:    engagementMetrics,
		dimensions: "video",
		sort:       "-views",
		maxResults: maxResults,
	})
}

// VideoDaily returns daily metrics for one video, newest first.
func (a *Analytics) VideoDaily(ctx context.Context, videoID string, days int) ([]Row, error) {
	return a.lastDays(ctx, days, report{
		metrics:    engagementMetrics,
		dimensions: "day",
		filters:    "video==" + videoID,
		sort:       "-day",
	})
}

// TrafficSources breaks views down by traffic source type.
func (a *Analytics) TrafficSources(ctx context.Context, days int) ([]Row, error) {
	return a.lastDays(ctx, days, report{
		metrics:    "views,estimatedMinutesWatched",
		dimensions: "insightTrafficSourceType",
		sort:       "-views",
	})
}

// SearchTerms returns the YouTube search terms that led to the channel.
func (a *Analytics) SearchTerms(ctx context.Context, days, maxResults int) ([]Row, error) {
	return a.lastDays(ctx, days, report{
		metrics:    "views,estimatedMinutesWatched",
		dimensions: "insightTrafficSourceDetail",
		filters:    "insightTrafficSourceType==YT_SEARCH",
		sort:       "-views",
		maxResults: maxResults,
	})
}

// Demographics returns viewer percentages by age group and gender.
func (a *Analytics) Demographics(ctx context.Context, days int) ([]Row, error) {
	return a.lastDays(ctx, days, report{
		metrics:    "viewerPercentage",
		dimensions: "ageGroup,gender",
	})
}

// Retention returns the audience retention curve of one video over its
// whole lifetime.
func (a *Analytics) Retention(ctx context.Context, videoID string) ([]Row, error) {
	return a.query(ctx, retentionStart, retentionEnd, report{
		metrics:    "audienceWatchRatio,relativeRetentionPerformance",
		dimensions: "elapsedVideoTimeRatio",
		filters:    "video==" + videoID,
	})
}

// Geography returns views by country.
func (a *Analytics) Geography(ctx context.Context, days, maxResults int) ([]Row, error) {
	return a.lastDays(ctx, days, report{
		metrics:    "views,estimatedMinutesWatched",
		dimensions: "country",
		sort:       "-views",
		maxResults: maxResults,
	})
}

// Revenue returns daily revenue for a monetized channel, newest first.
func (a *Analytics) Revenue(ctx context.Context, days int) ([]Row, error) {
	return a.lastDays(ctx, days, report{
		metrics:    "estimatedRevenue,estimatedAdRevenue,grossRevenue,cpm",
		dimensions: "day",
		sort:       "-day",
	})
}

func (r Row) num(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func (r Row) str(key, fallback string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fallback
}
