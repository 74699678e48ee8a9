package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"taskrelay/internal/config"
	"taskrelay/internal/output"
	"taskrelay/internal/youtube"
)

// youtubeOwner holds the endpoints and browser hook of the OAuth commands;
// tests point them at a local server.
var youtubeOwner = struct {
	Analytics   youtube.AnalyticsOptions
	Uploader    youtube.UploaderOptions
	OpenBrowser func(url string) error
}{OpenBrowser: openBrowser}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// newOwnerRun authorizes as the channel owner for scopes, caching the token
// in tokenFile under the token directory.
func newOwnerRun(cmd *cobra.Command, scopes []string, tokenFile string) (*http.Client, *output.Printer, error) {
	p := youtubePrinter(cmd)
	if err := loadEnv(cmd); err != nil {
		return nil, p, p.Fail(err)
	}
	secrets, err := config.Require(config.EnvYouTubeClientSecrets)
	if err != nil {
		return nil, p, p.Fail(err)
	}
	dir := strings.TrimSpace(os.Getenv(config.EnvTokenDir))
	if dir == "" {
		dir = youtube.DefaultTokenDir()
	}

	ts, err := youtube.TokenSource(cmd.Context(), youtube.OAuthOptions{
		ClientSecrets: secrets,
		TokenFile:     filepath.Join(dir, tokenFile),
		Scopes:        scopes,
		Prompt:        cmd.ErrOrStderr(),
		OpenBrowser:   youtubeOwner.OpenBrowser,
	})
	if err != nil {
		return nil, p, p.Fail(err)
	}
	return youtube.HTTPClient(cmd.Context(), ts), p, nil
}

type analyticsQuery func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error)

func runAnalytics(cmd *cobra.Command, query analyticsQuery, write func(io.Writer, []youtube.Row)) error {
	client, p, err := newOwnerRun(cmd, youtube.AnalyticsScopes, youtube.AnalyticsTokenFile)
	if err != nil {
		return err
	}
	opts := youtubeOwner.Analytics
	opts.HTTPClient = client

	rows, err := query(cmd.Context(), youtube.NewAnalytics(opts))
	if err != nil {
		return p.Fail(err)
	}
	return p.Print(rows, func(w io.Writer) { write(w, rows) })
}

// RunChannelStats prints daily channel metrics.
func RunChannelStats(cmd *cobra.Command, days int) error {
	return runAnalytics(cmd, func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error) {
		return a.ChannelStats(ctx, days)
	}, youtube.WriteChannelStats)
}

// RunTopVideos prints the most viewed videos.
func RunTopVideos(cmd *cobra.Command, days, maxResults int) error {
	return runAnalytics(cmd, func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error) {
		return a.TopVideos(ctx, days, maxResults)
	}, youtube.WriteTopVideos)
}

// RunVideoDaily prints one video's daily metrics.
func RunVideoDaily(cmd *cobra.Command, videoID string, days int) error {
	return runAnalytics(cmd, func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error) {
		return a.VideoDaily(ctx, videoID, days)
	}, func(w io.Writer, rows []youtube.Row) { youtube.WriteVideoDaily(w, videoID, rows) })
}

// RunTrafficSources prints views by traffic source.
func RunTrafficSources(cmd *cobra.Command, days int) error {
	return runAnalytics(cmd, func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error) {
		return a.TrafficSources(ctx, days)
	}, youtube.WriteTrafficSources)
}

// RunSearchTerms prints the search terms that found the channel.
func RunSearchTerms(cmd *cobra.Command, days, maxResults int) error {
	return runAnalytics(cmd, func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error) {
		return a.SearchTerms(ctx, days, maxResults)
	}, youtube.WriteSearchTerms)
}

// RunDemographics prints viewer age and gender.
func RunDemographics(cmd *cobra.Command, days int) error {
	return runAnalytics(cmd, func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error) {
		return a.Demographics(ctx, days)
	}, youtube.WriteDemographics)
}

// RunRetention prints a video's audience retention curve.
func RunRetention(cmd *cobra.Command, videoID string) error {
	return runAnalytics(cmd, func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error) {
		return a.Retention(ctx, videoID)
	}, func(w io.Writer, rows []youtube.Row) { youtube.WriteRetention(w, videoID, rows) })
}

// RunGeography prints views by country.
func RunGeography(cmd *cobra.Command, days, maxResults int) error {
	return runAnalytics(cmd, func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error) {
		return a.Geography(ctx, days, maxResults)
	}, youtube.WriteGeography)
}

// RunRevenue prints daily revenue.
func RunRevenue(cmd *cobra.Command, days int) error {
	return runAnalytics(cmd, func(ctx context.Context, a *youtube.Analytics) ([]youtube.Row, error) {
		return a.Revenue(ctx, days)
	}, youtube.WriteRevenue)
}

func newUploader(cmd *cobra.Command) (*youtube.Uploader, *output.Printer, error) {
	client, p, err := newOwnerRun(cmd, youtube.UploadScopes, youtube.UploadTokenFile)
	if err != nil {
		return nil, p, err
	}
	opts := youtubeOwner.Uploader
	opts.HTTPClient = client
	opts.Progress = cmd.ErrOrStderr()
	return youtube.NewUploader(opts), p, nil
}

// UploadFlags are the upload command's metadata flags.
type UploadFlags struct {
	Metadata    string
	Title       string
	Description string
	Tags        string
	Category    string
	Privacy     string
	Thumbnail   string
}

// uploadMetadata merges a metadata file with flags. File values win except
// for the thumbnail, which the flag overrides.
func uploadMetadata(f UploadFlags) (youtube.Metadata, error) {
	meta := youtube.Metadata{
		Title:       f.Title,
		Description: f.Description,
		Tags:        youtube.SplitTags(f.Tags),
		Category:    f.Category,
		Privacy:     f.Privacy,
		Thumbnail:   f.Thumbnail,
	}
	if f.Metadata != "" {
		file, err := youtube.ReadMetadataFile(f.Metadata)
		if err != nil {
			return meta, err
		}
		meta.Title = firstNonEmpty(file.Title, f.Title)
		meta.Description = firstNonEmpty(file.Description, f.Description)
		if file.HasTags() {
			meta.Tags = file.Tags
		}
		meta.Category = firstNonEmpty(file.Category, f.Category)
		meta.Privacy = firstNonEmpty(file.Privacy, f.Privacy)
		meta.Thumbnail = firstNonEmpty(f.Thumbnail, file.Thumbnail)
	}

	if meta.Title == "" {
		return meta, errors.New("--title is required (or provide in metadata file)")
	}
	switch meta.Privacy {
	case "private", "unlisted", "public":
	default:
		return meta, fmt.Errorf("invalid privacy %q: want private, unlisted or public", meta.Privacy)
	}
	return meta, nil
}

// RunUpload uploads a video to the authenticated channel.
func RunUpload(cmd *cobra.Command, video string, f UploadFlags) error {
	p := youtubePrinter(cmd)
	meta, err := uploadMetadata(f)
	if err != nil {
		return p.Fail(err)
	}
	up, p, err := newUploader(cmd)
	if err != nil {
		return err
	}
	res, err := up.Upload(cmd.Context(), video, meta)
	if err != nil {
		return p.Fail(err)
	}
	return p.Print(res, func(w io.Writer) {
		fmt.Fprintf(w, "Uploaded: %s\nVideo ID: %s\nPrivacy: %s\n", res.URL, res.VideoID, res.Privacy)
	})
}

// RunSetThumbnail sets a video's custom thumbnail.
func RunSetThumbnail(cmd *cobra.Command, videoID, image string) error {
	up, p, err := newUploader(cmd)
	if err != nil {
		return err
	}
	if err := up.SetThumbnail(cmd.Context(), videoID, image); err != nil {
		return p.Fail(err)
	}
	return p.Print(map[string]any{"success": true, "video_id": videoID}, func(w io.Writer) {
		fmt.Fprintf(w, "Thumbnail set for video: %s\n", videoID)
	})
}

// UpdateFlags are the update command's metadata flags.
type UpdateFlags struct {
	Metadata    string
	Title       string
	Description string
	Tags        string
}

// videoUpdate merges flags with a metadata file. Flags win; anything set by
// neither keeps its current value.
func videoUpdate(f UpdateFlags) (youtube.VideoUpdate, error) {
	title, description := f.Title, f.Description
	tags := youtube.SplitTags(f.Tags)
	if f.Metadata != "" {
		file, err := youtube.ReadMetadataFile(f.Metadata)
		if err != nil {
			return youtube.VideoUpdate{}, err
		}
		title = firstNonEmpty(title, file.Title)
		description = firstNonEmpty(description, file.Description)
		if len(tags) == 0 && file.HasTags() {
			tags = file.Tags
		}
	}

	var upd youtube.VideoUpdate
	if title != "" {
		upd.Title = &title
	}
	if description != "" {
		upd.Description = &description
	}
	if len(tags) > 0 {
		upd.Tags = tags
	}
	return upd, nil
}

// RunUpdate changes a video's title, description or tags.
func RunUpdate(cmd *cobra.Command, videoID string, f UpdateFlags) error {
	p := youtubePrinter(cmd)
	upd, err := videoUpdate(f)
	if err != nil {
		return p.Fail(err)
	}
	up, p, err := newUploader(cmd)
	if err != nil {
		return err
	}
	res, err := up.Update(cmd.Context(), videoID, upd)
	if err != nil {
		return p.Fail(err)
	}
	return p.Print(res, func(w io.Writer) {
		fmt.Fprintf(w, "Updated: %s\nTitle: %s\n", res.URL, res.Title)
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
