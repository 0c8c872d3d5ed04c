package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/denisAlshanov/ytproxy/internal/services/extractor"
)

const backendName = "youtube"

type userAgentKey struct{}

// Client is the native Go extractor backend built on kkdai/youtube.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new YouTube client. userAgent is sent on requests that
// do not already carry one.
func NewClient(timeout time.Duration, userAgent string) *Client {
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &userAgentTransport{
			base:      http.DefaultTransport,
			userAgent: userAgent,
		},
	}

	return &Client{
		httpClient: httpClient,
	}
}

func (c *Client) Name() string {
	return backendName
}

func (c *Client) Ready(ctx context.Context) error {
	return nil
}

// FetchInfo retrieves video metadata and the raw format list. With
// opts.Format set, the list is narrowed to that itag and RawInfo.URL holds
// its deciphered stream URL; an unknown itag yields an empty URL, not an error.
func (c *Client) FetchInfo(ctx context.Context, urlOrID string, opts extractor.FetchOptions) (*extractor.RawInfo, error) {
	if opts.UserAgent != "" {
		ctx = context.WithValue(ctx, userAgentKey{}, opts.UserAgent)
	}

	// A fresh client per call keeps the player cache request-scoped.
	ytClient := &youtube.Client{
		HTTPClient: c.httpClient,
	}

	video, err := ytClient.GetVideoContext(ctx, urlOrID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}

	info := &extractor.RawInfo{
		ID:              video.ID,
		Title:           video.Title,
		Thumbnail:       bestThumbnail(video.Thumbnails),
		DurationSeconds: int64(video.Duration.Seconds()),
	}

	if opts.Format == "" {
		info.Formats, err = rawFormats(video.Formats)
		if err != nil {
			return nil, err
		}
		return info, nil
	}

	format, ok := findFormat(video.Formats, opts.Format)
	if !ok {
		return info, nil
	}

	streamURL, err := ytClient.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream url: %w", err)
	}

	info.URL = streamURL
	info.Formats, err = rawFormats(youtube.FormatList{*format})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// findFormat looks a catalog key up among the player formats. Keys that are
// not itags never match.
func findFormat(formats youtube.FormatList, key string) (*youtube.Format, bool) {
	itag, err := strconv.Atoi(key)
	if err != nil {
		return nil, false
	}

	matches := formats.Itag(itag)
	if len(matches) == 0 {
		return nil, false
	}
	return &matches[0], true
}

// rawFormats keeps the player response field names by going through the
// library's own JSON tags.
func rawFormats(formats youtube.FormatList) ([]extractor.RawFormat, error) {
	data, err := json.Marshal(formats)
	if err != nil {
		return nil, fmt.Errorf("failed to encode formats: %w", err)
	}

	var raw []extractor.RawFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode formats: %w", err)
	}
	return raw, nil
}

func bestThumbnail(thumbnails youtube.Thumbnails) string {
	var best string
	var bestArea uint
	for _, thumb := range thumbnails {
		area := thumb.Width * thumb.Height
		if best == "" || area > bestArea {
			best = thumb.URL
			bestArea = area
		}
	}
	return best
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ua := t.userAgent
	if override, ok := req.Context().Value(userAgentKey{}).(string); ok {
		ua = override
	}
	if ua != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", ua)
	}
	return t.base.RoundTrip(req)
}
