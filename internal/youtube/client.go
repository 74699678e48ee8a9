// Package youtube implements the research side of the YouTube Data API v3:
// channel uploads with outlier scoring, keyword search and transcripts.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskrelay/internal/httpclient"
)

const (
	// DefaultBaseURL is the YouTube Data API v3 root.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	// DefaultSupadataURL is the Supadata transcript API root.
	DefaultSupadataURL = "https://api.supadata.ai/v1"

	videoBatch     = 50
	topChannelsMax = 5
	truncateMarker = "... [truncated]"
)

// ErrChannelNotFound is returned when a channel reference resolves to nothing.
var ErrChannelNotFound = errors.New("channel not found")

// Video is one video with derived performance metrics.
type Video struct {
	VideoID        string   `json:"video_id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	ChannelName    string   `json:"channel_name"`
	PublishedAt    string   `json:"published_at"`
	ViewCount      int64    `json:"view_count"`
	LikeCount      int64    `json:"like_count"`
	CommentCount   int64    `json:"comment_count"`
	EngagementRate float64  `json:"engagement_rate"`
	ViewsPerDay    float64  `json:"views_per_day"`
	OutlierScore   *float64 `json:"outlier_score"`
	IsOutlier      *bool    `json:"is_outlier"`
	Tags           []string `json:"tags"`
}

// ChannelInfo identifies a resolved channel.
type ChannelInfo struct {
	ChannelID       string `json:"channel_id"`
	Name            string `json:"name"`
	SubscriberCount int64  `json:"subscriber_count"`
	TotalVideoCount int64  `json:"total_video_count"`
	Handle          string `json:"handle,omitempty"`
}

// ChannelVideos is the result of ChannelVideos.
type ChannelVideos struct {
	ChannelName string  `json:"channel_name"`
	PeriodDays  int     `json:"period_days"`
	TotalVideos int     `json:"total_videos"`
	AvgViews    float64 `json:"avg_views"`
	StdDevViews float64 `json:"std_dev_views"`
	Videos      []Video `json:"videos"`
}

// SearchResult is the result of Search.
type SearchResult struct {
	Query        string         `json:"query"`
	TotalResults int64          `json:"total_results"`
	AvgViews     float64        `json:"avg_views"`
	TopChannels  []channelCount `json:"top_channels"`
	Videos       []Video        `json:"videos"`
}

// SearchOptions configures Search.
type SearchOptions struct {
	Query      string
	MaxResults int
	DaysBack   int    // 0 means no date filter
	Order      string // relevance, view_count or date
}

// Transcript is a video's caption text.
type Transcript struct {
	VideoID     string `json:"video_id"`
	Language    string `json:"language"`
	IsGenerated bool   `json:"is_generated"`
	Transcript  string `json:"transcript"`
	Source      string `json:"source"`
}

// Client calls the YouTube Data API with an API key, and Supadata for
// transcripts when a Supadata key is configured.
type Client struct {
	apiKey   string
	api      *httpclient.Client
	supadata *httpclient.Client
	now      func() time.Time
}

// Options configures New.
type Options struct {
	APIKey      string
	SupadataKey string
	BaseURL     string
	SupadataURL string
	HTTPClient  *http.Client
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SupadataURL == "" {
		opts.SupadataURL = DefaultSupadataURL
	}
	c := &Client{
		apiKey: opts.APIKey,
		api: httpclient.New(httpclient.Config{
			Service:      "YouTube",
			BaseURL:      opts.BaseURL,
			Limiter:      httpclient.PerSecond(10),
			ErrorMessage: googleErrorMessage,
			HTTPClient:   opts.HTTPClient,
		}),
		now: time.Now,
	}
	if opts.SupadataKey != "" {
		c.supadata = httpclient.New(httpclient.Config{
			Service:    "Supadata",
			BaseURL:    opts.SupadataURL,
			Header:     http.Header{"X-Api-Key": []string{opts.SupadataKey}},
			Limiter:    httpclient.PerSecond(2),
			HTTPClient: opts.HTTPClient,
		})
	}
	return c
}

// ResolveChannel resolves an @handle, channel URL or channel ID.
func (c *Client) ResolveChannel(ctx context.Context, input string) (ChannelInfo, error) {
	ref, ok := ParseChannelInput(input)
	if !ok {
		return ChannelInfo{}, fmt.Errorf("could not parse channel input: %s", input)
	}

	query := url.Values{"part": {"snippet,statistics"}}
	if strings.HasPrefix(ref, "@") {
		query.Set("forHandle", ref)
	} else {
		query.Set("id", ref)
	}
	var resp channelList
	if err := c.get(ctx, "/channels", query, &resp); err != nil {
		return ChannelInfo{}, err
	}

	if len(resp.Items) == 0 && strings.HasPrefix(ref, "@") {
		id, err := c.searchChannel(ctx, ref)
		if err != nil {
			return ChannelInfo{}, err
		}
		query.Del("forHandle")
		query.Set("id", id)
		if err := c.get(ctx, "/channels", query, &resp); err != nil {
			return ChannelInfo{}, err
		}
	}
	if len(resp.Items) == 0 {
		return ChannelInfo{}, fmt.Errorf("%w: %s", ErrChannelNotFound, input)
	}

	item := resp.Items[0]
	return ChannelInfo{
		ChannelID:       item.ID,
		Name:            item.Snippet.Title,
		Handle:          item.Snippet.CustomURL,
		SubscriberCount: parseCount(item.Statistics.SubscriberCount),
		TotalVideoCount: parseCount(item.Statistics.VideoCount),
	}, nil
}

func (c *Client) searchChannel(ctx context.Context, handle string) (string, error) {
	var resp searchList
	query := url.Values{
		"part":       {"snippet"},
		"q":          {handle},
		"type":       {"channel"},
		"maxResults": {"1"},
	}
	if err := c.get(ctx, "/search", query, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("%w: %s", ErrChannelNotFound, handle)
	}
	return resp.Items[0].Snippet.ChannelID, nil
}

// ChannelVideos fetches a channel's uploads from the last daysBack days and
// scores each against the channel's average.
func (c *Client) ChannelVideos(ctx context.Context, channelID string, daysBack, maxResults int) (ChannelVideos, error) {
	var channels channelList
	if err := c.get(ctx, "/channels", url.Values{"part": {"snippet"}, "id": {channelID}}, &channels); err != nil {
		return ChannelVideos{}, err
	}
	if len(channels.Items) == 0 {
		return ChannelVideos{}, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	out := ChannelVideos{
		ChannelName: channels.Items[0].Snippet.Title,
		PeriodDays:  daysBack,
		Videos:      []Video{},
	}

	var search searchList
	query := url.Values{
		"part":           {"id"},
		"channelId":      {channelID},
		"type":           {"video"},
		"order":          {"date"},
		"publishedAfter": {c.since(daysBack)},
		"maxResults":     {strconv.Itoa(maxResults)},
	}
	if err := c.get(ctx, "/search", query, &search); err != nil {
		return ChannelVideos{}, err
	}

	videos, err := c.videoDetails(ctx, search.videoIDs())
	if err != nil {
		return ChannelVideos{}, err
	}
	if len(videos) == 0 {
		return out, nil
	}

	avg, stdev := scoreOutliers(videos)
	out.TotalVideos = len(videos)
	out.AvgViews = round(avg, 2)
	out.StdDevViews = round(stdev, 2)
	out.Videos = videos
	return out, nil
}

var searchOrders = map[string]string{
	"relevance":  "relevance",
	"view_count": "viewCount",
	"date":       "date",
}

// Search runs a keyword video search and summarizes the results.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (SearchResult, error) {
	order, ok := searchOrders[opts.Order]
	if !ok {
		order = "relevance"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 25
	}
	query := url.Values{
		"part":       {"id"},
		"q":          {opts.Query},
		"type":       {"video"},
		"order":      {order},
		"maxResults": {strconv.Itoa(opts.MaxResults)},
	}
	if opts.DaysBack > 0 {
		query.Set("publishedAfter", c.since(opts.DaysBack))
	}

	var search searchList
	if err := c.get(ctx, "/search", query, &search); err != nil {
		return SearchResult{}, err
	}
	out := SearchResult{Query: opts.Query, TopChannels: []channelCount{}, Videos: []Video{}}
	ids := search.videoIDs()
	if len(ids) == 0 {
		return out, nil
	}

	videos, err := c.videoDetails(ctx, ids)
	if err != nil {
		return SearchResult{}, err
	}
	views := make([]float64, len(videos))
	for i, v := range videos {
		views[i] = float64(v.ViewCount)
	}
	out.TotalResults = search.PageInfo.TotalResults
	out.AvgViews = round(mean(views), 2)
	out.TopChannels = topChannels(videos, topChannelsMax)
	out.Videos = videos
	return out, nil
}

// Transcript fetches caption text through Supadata, truncated to maxChars.
func (c *Client) Transcript(ctx context.Context, video string, maxChars int) (Transcript, error) {
	if c.supadata == nil {
		return Transcript{}, errors.New("SUPADATA_API_KEY not set")
	}
	target := video
	if !strings.HasPrefix(video, "http") {
		target = "https://youtu.be/" + video
	}

	var resp struct {
		Content json.RawMessage `json:"content"`
		Lang    string          `json:"lang"`
	}
	err := c.supadata.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/transcript",
		Query:  url.Values{"url": {target}},
	}, &resp)
	switch httpclient.StatusCode(err) {
	case 0:
		if err != nil {
			return Transcript{}, fmt.Errorf("supadata: %w", err)
		}
	case http.StatusUnauthorized:
		return Transcript{}, errors.New("supadata: invalid API key")
	case http.StatusNotFound:
		return Transcript{}, fmt.Errorf("supadata: transcript not found for %s", video)
	default:
		return Transcript{}, fmt.Errorf("supadata: unexpected status %d", httpclient.StatusCode(err))
	}

	text := transcriptText(resp.Content)
	if maxChars > 0 {
		if runes := []rune(text); len(runes) > maxChars {
			text = string(runes[:maxChars]) + truncateMarker
		}
	}
	lang := resp.Lang
	if lang == "" {
		lang = "unknown"
	}
	return Transcript{VideoID: video, Language: lang, Transcript: text, Source: "supadata"}, nil
}

// transcriptText joins segment texts, or returns plain-text content as is.
func transcriptText(raw json.RawMessage) string {
	var segments []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err == nil {
		parts := make([]string, len(segments))
		for i, s := range segments {
			parts[i] = s.Text
		}
		return strings.Join(parts, " ")
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(raw)
}

func (c *Client) videoDetails(ctx context.Context, ids []string) ([]Video, error) {
	videos := []Video{}
	now := c.now()
	for start := 0; start < len(ids); start += videoBatch {
		end := min(start+videoBatch, len(ids))
		var resp videoList
		query := url.Values{"part": {"snippet,statistics"}, "id": {strings.Join(ids[start:end], ",")}}
		if err := c.get(ctx, "/videos", query, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			if v, ok := item.toVideo(now); ok {
				videos = append(videos, v)
			}
		}
	}
	return videos, nil
}

func (c *Client) since(days int) string {
	return c.now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("key", c.apiKey)
	return c.api.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

type channelList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title     string `json:"title"`
			CustomURL string `json:"customUrl"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type searchList struct {
	PageInfo struct {
		TotalResults int64 `json:"totalResults"`
	} `json:"pageInfo"`
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			ChannelID string `json:"channelId"`
		} `json:"snippet"`
	} `json:"items"`
}

func (s searchList) videoIDs() []string {
	var ids []string
	for _, item := range s.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	return ids
}

type videoList struct {
	Items []videoItem `json:"items"`
}

type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string   `json:"title"`
		ChannelTitle string   `json:"channelTitle"`
		PublishedAt  string   `json:"publishedAt"`
		Tags         []string `json:"tags"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
}

// toVideo derives metrics; items with an unparseable publish time are dropped.
func (item videoItem) toVideo(now time.Time) (Video, bool) {
	published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
	if err != nil {
		return Video{}, false
	}
	views := parseCount(item.Statistics.ViewCount)
	likes := parseCount(item.Statistics.LikeCount)
	comments := parseCount(item.Statistics.CommentCount)
	tags := item.Snippet.Tags
	if tags == nil {
		tags = []string{}
	}
	return Video{
		VideoID:        item.ID,
		Title:          item.Snippet.Title,
		URL:            "https://www.youtube.com/watch?v=" + item.ID,
		ChannelName:    item.Snippet.ChannelTitle,
		PublishedAt:    published.UTC().Format(time.RFC3339),
		ViewCount:      views,
		LikeCount:      likes,
		CommentCount:   comments,
		EngagementRate: engagementRate(views, likes, comments),
		ViewsPerDay:    viewsPerDay(views, published, now),
		Tags:           tags,
	}, true
}

// parseCount reads the decimal strings the API uses for statistics.
func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// googleErrorMessage extracts error.message (and the first reason) from a
// Google API error body.
func googleErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		if len(payload.Error.Errors) > 0 && payload.Error.Errors[0].Reason != "" {
			return payload.Error.Errors[0].Reason + " - " + payload.Error.Message
		}
		return payload.Error.Message
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return "Unknown error"
}
