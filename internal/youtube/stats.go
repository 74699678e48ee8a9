package youtube

import (
	"math"
	"sort"
	"time"
)

// outlierThreshold is the z-score above which a video counts as an outlier.
const outlierThreshold = 2.0

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev is the n-1 standard deviation; zero for fewer than two values.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// scoreOutliers sets each video's z-score of views and sorts by it, highest
// first. It returns the unrounded mean and standard deviation.
func scoreOutliers(videos []Video) (avg, stdev float64) {
	views := make([]float64, len(videos))
	for i, v := range videos {
		views[i] = float64(v.ViewCount)
	}
	avg = mean(views)
	stdev = sampleStdDev(views)

	for i := range videos {
		score := 0.0
		if stdev > 0 {
			score = round((float64(videos[i].ViewCount)-avg)/stdev, 2)
		}
		outlier := score > outlierThreshold
		videos[i].OutlierScore = &score
		videos[i].IsOutlier = &outlier
	}
	sort.SliceStable(videos, func(a, b int) bool {
		return *videos[a].OutlierScore > *videos[b].OutlierScore
	})
	return avg, stdev
}

// engagementRate is (likes+comments)/views, zero for unwatched videos.
func engagementRate(views, likes, comments int64) float64 {
	if views <= 0 {
		return 0
	}
	return round(float64(likes+comments)/float64(views), 4)
}

// viewsPerDay divides by whole days since publishing, at least one.
func viewsPerDay(views int64, published, now time.Time) float64 {
	days := int64(now.Sub(published) / (24 * time.Hour))
	return round(float64(views)/float64(max(days, 1)), 2)
}

type channelCount struct {
	Name       string `json:"name"`
	VideoCount int    `json:"video_count"`
}

// topChannels ranks channels by how many of the videos they published.
// Ties keep first-seen order.
func topChannels(videos []Video, limit int) []channelCount {
	index := make(map[string]int)
	var counts []channelCount
	for _, v := range videos {
		i, ok := index[v.ChannelName]
		if !ok {
			i = len(counts)
			index[v.ChannelName] = i
			counts = append(counts, channelCount{Name: v.ChannelName})
		}
		counts[i].VideoCount++
	}
	sort.SliceStable(counts, func(a, b int) bool {
		return counts[a].VideoCount > counts[b].VideoCount
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	if counts == nil {
		counts = []channelCount{}
	}
	return counts
}
