package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, mux *http.ServeMux, supadataKey string) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := New(Options{
		APIKey:      "yt-key",
		SupadataKey: supadataKey,
		BaseURL:     srv.URL + "/youtube/v3",
		SupadataURL: srv.URL + "/supadata",
	})
	c.now = func() time.Time { return fixedNow }
	return c
}

func videoJSON(id, channel string, views int, published string) map[string]any {
	return map[string]any{
		"id": id,
		"snippet": map[string]any{
			"title":        "Video " + id,
			"channelTitle": channel,
			"publishedAt":  published,
		},
		"statistics": map[string]any{
			"viewCount":    itoa(views),
			"likeCount":    itoa(views / 10),
			"commentCount": itoa(views / 100),
		},
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestParseChannelInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"@mkbhd", "@mkbhd"},
		{"https://www.youtube.com/@veritasium", "@veritasium"},
		{"youtube.com/channel/UCBJycsmduvYEL83R_U4JriQ", "UCBJycsmduvYEL83R_U4JriQ"},
		{"https://youtube.com/c/LinusTechTips", "@LinusTechTips"},
		{"UCsBjURrPoezykLs9EqgamOA", "UCsBjURrPoezykLs9EqgamOA"},
		{"  fireship ", "@fireship"},
	}
	for _, tt := range tests {
		got, ok := ParseChannelInput(tt.in)
		assert.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, ok := ParseChannelInput("not a channel!")
	assert.False(t, ok)
}

func TestResolveChannelByHandle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yt-key", r.URL.Query().Get("key"))
		assert.Equal(t, "@mkbhd", r.URL.Query().Get("forHandle"))
		writeJSON(t, w, map[string]any{"items": []any{map[string]any{
			"id":         "UCBJycsmduvYEL83R_U4JriQ",
			"snippet":    map[string]any{"title": "Marques Brownlee", "customUrl": "@mkbhd"},
			"statistics": map[string]any{"subscriberCount": "19000000", "videoCount": "1700"},
		}}})
	})
	c := newTestClient(t, mux, "")

	info, err := c.ResolveChannel(context.Background(), "https://www.youtube.com/@mkbhd")
	require.NoError(t, err)
	assert.Equal(t, ChannelInfo{
		ChannelID:       "UCBJycsmduvYEL83R_U4JriQ",
		Name:            "Marques Brownlee",
		Handle:          "@mkbhd",
		SubscriberCount: 19000000,
		TotalVideoCount: 1700,
	}, info)
}

func TestResolveChannelNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []any{}})
	})
	mux.HandleFunc("GET /youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "channel", r.URL.Query().Get("type"))
		writeJSON(t, w, map[string]any{"items": []any{}})
	})
	c := newTestClient(t, mux, "")

	_, err := c.ResolveChannel(context.Background(), "@ghost")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestChannelVideosScoresOutliers(t *testing.T) {
	views := []int{1000, 1100, 900, 1000, 1050, 950, 1000, 1000, 1000, 50000}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []any{map[string]any{
			"id": "UC1", "snippet": map[string]any{"title": "Tiny Channel"},
		}}})
	})
	mux.HandleFunc("GET /youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "UC1", q.Get("channelId"))
		assert.Equal(t, "date", q.Get("order"))
		assert.Equal(t, "2026-09-14T12:00:00Z", q.Get("publishedAfter"))
		var items []any
		for i := range views {
			items = append(items, map[string]any{"id": map[string]any{"videoId": "v" + itoa(i)}})
		}
		writeJSON(t, w, map[string]any{"items": items})
	})
	mux.HandleFunc("GET /youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		var items []any
		for i, id := range ids {
			items = append(items, videoJSON(id, "Tiny Channel", views[i], "2026-10-04T12:00:00Z"))
		}
		writeJSON(t, w, map[string]any{"items": items})
	})
	c := newTestClient(t, mux, "")

	res, err := c.ChannelVideos(context.Background(), "UC1", 30, 50)
	require.NoError(t, err)
	require.Len(t, res.Videos, 10)
	assert.Equal(t, "Tiny Channel", res.ChannelName)
	assert.Equal(t, 10, res.TotalVideos)
	assert.Equal(t, 5900.0, res.AvgViews)

	top := res.Videos[0]
	assert.Equal(t, "v9", top.VideoID)
	require.NotNil(t, top.IsOutlier)
	assert.True(t, *top.IsOutlier)
	assert.Greater(t, *top.OutlierScore, 2.0)
	for _, v := range res.Videos[1:] {
		assert.False(t, *v.IsOutlier, v.VideoID)
	}
	assert.Equal(t, 5000.0, top.ViewsPerDay)
	assert.Equal(t, 0.11, top.EngagementRate)
}

func TestChannelVideosEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []any{map[string]any{"id": "UC1", "snippet": map[string]any{"title": "Quiet"}}}})
	})
	mux.HandleFunc("GET /youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []any{}})
	})
	c := newTestClient(t, mux, "")

	res, err := c.ChannelVideos(context.Background(), "UC1", 7, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalVideos)
	assert.Empty(t, res.Videos)
	assert.NotNil(t, res.Videos)
}

func TestSearchTopChannels(t *testing.T) {
	channels := []string{"A", "B", "A", "C", "B", "A", "D", "E", "F"}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "viewCount", r.URL.Query().Get("order"))
		assert.Empty(t, r.URL.Query().Get("publishedAfter"))
		var items []any
		for i := range channels {
			items = append(items, map[string]any{"id": map[string]any{"videoId": "v" + itoa(i)}})
		}
		writeJSON(t, w, map[string]any{"pageInfo": map[string]any{"totalResults": 120000}, "items": items})
	})
	mux.HandleFunc("GET /youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		var items []any
		for i, id := range strings.Split(r.URL.Query().Get("id"), ",") {
			items = append(items, videoJSON(id, channels[i], 100*(i+1), "2026-10-01T00:00:00Z"))
		}
		writeJSON(t, w, map[string]any{"items": items})
	})
	c := newTestClient(t, mux, "")

	res, err := c.Search(context.Background(), SearchOptions{Query: "ai agents", Order: "view_count"})
	require.NoError(t, err)
	assert.EqualValues(t, 120000, res.TotalResults)
	assert.Equal(t, 500.0, res.AvgViews)
	assert.Equal(t, []channelCount{
		{Name: "A", VideoCount: 3},
		{Name: "B", VideoCount: 2},
		{Name: "C", VideoCount: 1},
		{Name: "D", VideoCount: 1},
		{Name: "E", VideoCount: 1},
	}, res.TopChannels)
	assert.Nil(t, res.Videos[0].OutlierScore)
}

func TestTranscriptSupadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /supadata/transcript", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sd-key", r.Header.Get("X-Api-Key"))
		switch r.URL.Query().Get("url") {
		case "https://youtu.be/abc":
			writeJSON(t, w, map[string]any{"lang": "en", "content": []any{
				map[string]any{"text": "hello"}, map[string]any{"text": "world and more"},
			}})
		case "https://youtu.be/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	c := newTestClient(t, mux, "sd-key")

	tr, err := c.Transcript(context.Background(), "abc", 11)
	require.NoError(t, err)
	assert.Equal(t, Transcript{
		VideoID:    "abc",
		Language:   "en",
		Transcript: "hello world... [truncated]",
		Source:     "supadata",
	}, tr)

	_, err = c.Transcript(context.Background(), "missing", 0)
	assert.EqualError(t, err, "supadata: transcript not found for missing")

	_, err = c.Transcript(context.Background(), "https://example.com/other", 0)
	assert.EqualError(t, err, "supadata: invalid API key")
}

func TestTranscriptNeedsKey(t *testing.T) {
	c := newTestClient(t, http.NewServeMux(), "")
	_, err := c.Transcript(context.Background(), "abc", 100)
	assert.EqualError(t, err, "SUPADATA_API_KEY not set")
}

func TestGoogleErrorMessage(t *testing.T) {
	body := []byte(`{"error":{"code":403,"message":"The request cannot be completed because you have exceeded your quota.","errors":[{"reason":"quotaExceeded"}]}}`)
	assert.Equal(t, "quotaExceeded - The request cannot be completed because you have exceeded your quota.", googleErrorMessage(body))
	assert.Equal(t, "Unknown error", googleErrorMessage(nil))
}

func TestStats(t *testing.T) {
	assert.Equal(t, 0.0, sampleStdDev([]float64{5}))
	assert.InDelta(t, 1.5811, sampleStdDev([]float64{1, 2, 3, 4, 5}), 1e-4)
	assert.Equal(t, 0.0, engagementRate(0, 5, 5))
	assert.Equal(t, 0.0123, engagementRate(10000, 100, 23))
	published := fixedNow.Add(-36 * time.Hour)
	assert.Equal(t, 1000.0, viewsPerDay(1000, published, fixedNow))
	assert.Equal(t, 500.0, viewsPerDay(1000, fixedNow.Add(-2*24*time.Hour), fixedNow))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "1.2M", FormatCount(1_234_567))
	assert.Equal(t, "45.0K", FormatCount(45_000))
	assert.Equal(t, "999", FormatCount(999))
}

func TestWriteSearch(t *testing.T) {
	var buf bytes.Buffer
	WriteSearch(&buf, SearchResult{
		Query:        "go",
		TotalResults: 1234567,
		AvgViews:     2500,
		TopChannels:  []channelCount{{Name: "A", VideoCount: 2}},
		Videos:       []Video{{Title: "Intro", ChannelName: "A", ViewCount: 3000, URL: "https://www.youtube.com/watch?v=x"}},
	})
	out := buf.String()
	assert.Contains(t, out, "Results: 1,234,567")
	assert.Contains(t, out, "  - A (2 videos)")
	assert.Contains(t, out, "   Channel: A | Views: 3.0K")
}
