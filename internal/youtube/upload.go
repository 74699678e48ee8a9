package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"taskrelay/internal/httpclient"
)

// DefaultUploadURL is the media upload root of the Data API.
const DefaultUploadURL = "https://www.googleapis.com/upload/youtube/v3"

const (
	defaultChunkSize = 1 << 20
	// DefaultCategory is "People & Blogs".
	DefaultCategory = "22"
	DefaultPrivacy  = "private"
)

// ErrVideoNotFound is returned when a video ID matches nothing on the
// authenticated channel.
var ErrVideoNotFound = errors.New("video not found")

// Uploader manages videos on the authenticated channel. HTTPClient must
// authorize requests with an OAuth token holding UploadScopes.
type Uploader struct {
	api       *httpclient.Client
	uploadURL string
	chunkSize int64
	progress  io.Writer
}

// UploaderOptions configures NewUploader.
type UploaderOptions struct {
	BaseURL    string
	UploadURL  string
	HTTPClient *http.Client
	ChunkSize  int64     // resumable upload chunk size (default 1 MiB)
	Progress   io.Writer // receives upload progress lines; nil is silent
}

// NewUploader creates an Uploader.
func NewUploader(opts UploaderOptions) *Uploader {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UploadURL == "" {
		opts.UploadURL = DefaultUploadURL
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	return &Uploader{
		api: httpclient.New(httpclient.Config{
			Service:      "YouTube",
			BaseURL:      opts.BaseURL,
			Limiter:      httpclient.PerSecond(10),
			ErrorMessage: googleErrorMessage,
			HTTPClient:   opts.HTTPClient,
		}),
		uploadURL: strings.TrimRight(opts.UploadURL, "/"),
		chunkSize: opts.ChunkSize,
		progress:  progress,
	}
}

// UploadResult describes an uploaded video.
type UploadResult struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Privacy string `json:"privacy"`
}

// UpdateResult describes a video after a metadata update.
type UpdateResult struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// VideoUpdate holds the metadata to change. Nil fields keep their value.
type VideoUpdate struct {
	Title       *string
	Description *string
	Tags        []string
	CategoryID  *string
}

type snippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"categoryId"`
}

// Upload sends the video at path with a resumable upload and sets the
// thumbnail when meta names one.
func (u *Uploader) Upload(ctx context.Context, path string, meta Metadata) (UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return UploadResult{}, fmt.Errorf("video file not found: %s", path)
		}
		return UploadResult{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return UploadResult{}, err
	}
	size := info.Size()
	if size == 0 {
		return UploadResult{}, fmt.Errorf("video file is empty: %s", path)
	}

	if meta.Category == "" {
		meta.Category = DefaultCategory
	}
	if meta.Privacy == "" {
		meta.Privacy = DefaultPrivacy
	}
	body := map[string]any{
		"snippet": snippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        nonNil(meta.Tags),
			CategoryID:  meta.Category,
		},
		"status": map[string]any{
			"privacyStatus":           meta.Privacy,
			"selfDeclaredMadeForKids": false,
		},
	}

	resp, err := u.api.Send(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   u.uploadURL + "/videos",
		Query:  url.Values{"uploadType": {"resumable"}, "part": {"snippet,status"}},
		Body:   body,
		Header: http.Header{
			"X-Upload-Content-Type":   {"video/mp4"},
			"X-Upload-Content-Length": {strconv.FormatInt(size, 10)},
		},
	}, nil)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload failed: %w", err)
	}
	session := resp.Header.Get("Location")
	if session == "" {
		return UploadResult{}, errors.New("upload failed: no upload session returned")
	}

	var video struct {
		ID string `json:"id"`
	}
	if err := u.sendChunks(ctx, session, f, size, &video); err != nil {
		return UploadResult{}, fmt.Errorf("upload failed: %w", err)
	}

	if meta.Thumbnail != "" {
		if err := u.SetThumbnail(ctx, video.ID, meta.Thumbnail); err != nil {
			fmt.Fprintf(u.progress, "Warning: %v\n", err)
		}
	}
	return UploadResult{
		VideoID: video.ID,
		URL:     watchURL(video.ID),
		Title:   meta.Title,
		Privacy: meta.Privacy,
	}, nil
}

// sendChunks PUTs the file to the session in chunkSize pieces. Each 308
// reply reports how much the server holds; the final reply is the video.
func (u *Uploader) sendChunks(ctx context.Context, session string, r io.ReaderAt, size int64, out any) error {
	var offset int64
	for {
		end := min(offset+u.chunkSize, size)
		chunk := make([]byte, end-offset)
		if _, err := r.ReadAt(chunk, offset); err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		resp, err := u.api.Send(ctx, httpclient.Request{
			Method:      http.MethodPut,
			Path:        session,
			RawBody:     chunk,
			ContentType: "video/mp4",
			Header:      http.Header{"Content-Range": {fmt.Sprintf("bytes %d-%d/%d", offset, end-1, size)}},
			Accept:      []int{http.StatusPermanentRedirect},
		}, out)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusPermanentRedirect {
			fmt.Fprintln(u.progress, "Upload progress: 100%")
			return nil
		}

		offset = receivedUpTo(resp.Header.Get("Range"))
		fmt.Fprintf(u.progress, "Upload progress: %d%%\n", offset*100/size)
	}
}

// receivedUpTo parses a "bytes=0-N" Range header into the next offset.
// A missing header means nothing was stored.
func receivedUpTo(header string) int64 {
	_, last, ok := strings.Cut(strings.TrimPrefix(header, "bytes="), "-")
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0
	}
	return n + 1
}

// SetThumbnail uploads a PNG or JPEG image as the video's thumbnail.
func (u *Uploader) SetThumbnail(ctx context.Context, videoID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("thumbnail not found: %s", path)
		}
		return err
	}
	err = u.api.Do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        u.uploadURL + "/thumbnails/set",
		Query:       url.Values{"videoId": {videoID}, "uploadType": {"media"}},
		RawBody:     data,
		ContentType: imageType(path),
	}, nil)
	if err != nil {
		return fmt.Errorf("thumbnail failed: %w", err)
	}
	return nil
}

// Update changes a video's snippet, keeping fields upd leaves unset.
func (u *Uploader) Update(ctx context.Context, videoID string, upd VideoUpdate) (UpdateResult, error) {
	var list struct {
		Items []struct {
			Snippet snippet `json:"snippet"`
		} `json:"items"`
	}
	err := u.api.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/videos",
		Query:  url.Values{"part": {"snippet"}, "id": {videoID}},
	}, &list)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update failed: %w", err)
	}
	if len(list.Items) == 0 {
		return UpdateResult{}, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	s := list.Items[0].Snippet
	if upd.Title != nil {
		s.Title = *upd.Title
	}
	if upd.Description != nil {
		s.Description = *upd.Description
	}
	if upd.Tags != nil {
		s.Tags = upd.Tags
	}
	if upd.CategoryID != nil {
		s.CategoryID = *upd.CategoryID
	}
	s.Tags = nonNil(s.Tags)

	var updated struct {
		ID      string  `json:"id"`
		Snippet snippet `json:"snippet"`
	}
	err = u.api.Do(ctx, httpclient.Request{
		Method: http.MethodPut,
		Path:   "/videos",
		Query:  url.Values{"part": {"snippet"}},
		Body:   map[string]any{"id": videoID, "snippet": s},
	}, &updated)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update failed: %w", err)
	}
	return UpdateResult{VideoID: updated.ID, Title: updated.Snippet.Title, URL: watchURL(updated.ID)}, nil
}

func watchURL(id string) string {
	return "https://youtube.com/watch?v=" + id
}

func imageType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
