package downloader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/denisAlshanov/ytproxy/internal/config"
	"github.com/denisAlshanov/ytproxy/internal/models"
	"github.com/denisAlshanov/ytproxy/internal/services/catalog"
	"github.com/denisAlshanov/ytproxy/internal/services/extractor"
	"github.com/denisAlshanov/ytproxy/internal/services/relay"
	"github.com/denisAlshanov/ytproxy/internal/services/youtube"
	"github.com/denisAlshanov/ytproxy/internal/utils"
)

const maxFilenameLength = 50

// Service ties link parsing, catalog building and relaying together and
// turns their failures into *utils.AppError.
type Service struct {
	catalog   *catalog.Builder
	relay     *relay.Proxy
	semaphore chan struct{}
}

func NewService(builder *catalog.Builder, proxy *relay.Proxy, cfg *config.DownloadConfig) *Service {
	slots := cfg.MaxConcurrentDownloads
	if slots < 1 {
		slots = 1
	}
	return &Service{
		catalog:   builder,
		relay:     proxy,
		semaphore: make(chan struct{}, slots),
	}
}

// GetCatalog returns the normalized catalog for link.
func (s *Service) GetCatalog(ctx context.Context, link string) (*models.VideoCatalog, error) {
	videoID, err := parseLink(link)
	if err != nil {
		return nil, err
	}

	videoCatalog, err := s.catalog.Build(utils.WithVideo(ctx, videoID, ""), videoID)
	if err != nil {
		return nil, utils.NewExtractionError(err)
	}
	return videoCatalog, nil
}

// PrepareDownload validates the request against a freshly built catalog and
// opens the relay. The caller must Close the returned Download.
func (s *Service) PrepareDownload(ctx context.Context, link, formatID string) (*Download, error) {
	formatID = strings.TrimSpace(formatID)
	if formatID == "" {
		return nil, utils.NewValidationError("formatId is required", map[string]interface{}{
			"field": "formatId",
		})
	}

	videoID, err := parseLink(link)
	if err != nil {
		return nil, err
	}

	ctx = utils.WithVideo(ctx, videoID, formatID)

	videoCatalog, err := s.catalog.Build(ctx, videoID)
	if err != nil {
		return nil, utils.NewExtractionError(err)
	}

	format, found := videoCatalog.Formats.Find(formatID)
	if !found {
		utils.LogWarn(ctx, "Requested format not in catalog")
		return nil, utils.NewFormatUnavailableError(formatID)
	}

	select {
	case s.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release := func() { <-s.semaphore }

	stream, err := s.relay.Open(ctx, videoID, formatID)
	if err != nil {
		release()
		return nil, mapRelayError(formatID, err)
	}

	contentType := format.MimeType
	if contentType == "" {
		contentType = stream.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Download{
		Filename:      SanitizeFilename(videoCatalog.Title, videoCatalog.ID, format.Container),
		ContentType:   contentType,
		ContentLength: stream.ContentLength,
		Format:        format,
		stream:        stream,
		release:       release,
	}, nil
}

func parseLink(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", utils.NewValidationError("url is required", map[string]interface{}{
			"field": "url",
		})
	}

	videoID, ok := youtube.ResolveIdentity(link)
	if !ok {
		return "", utils.NewInvalidLinkError(link)
	}
	return videoID, nil
}

func mapRelayError(formatID string, err error) error {
	var statusErr *relay.UpstreamStatusError
	var fetchErr *extractor.FetchError

	switch {
	case errors.Is(err, relay.ErrFormatUnavailable):
		return utils.NewFormatUnavailableError(formatID)
	case errors.As(err, &statusErr):
		return utils.NewUpstreamError(statusErr.StatusCode, err)
	case errors.As(err, &fetchErr):
		return utils.NewExtractionError(err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return utils.NewUpstreamError(0, err)
	}
}

// SanitizeFilename keeps only ASCII letters and digits from title, caps the
// result at 50 characters and appends the container extension. An empty
// result falls back to videoID.
func SanitizeFilename(title, videoID, container string) string {
	var b strings.Builder
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == maxFilenameLength {
				break
			}
		}
	}

	name := b.String()
	if name == "" {
		name = videoID
	}
	if name == "" {
		name = "video"
	}
	if container == "" {
		return name
	}
	return fmt.Sprintf("%s.%s", name, container)
}

// Download is a prepared relay. Read streams the origin bytes.
type Download struct {
	Filename      string
	ContentType   string
	ContentLength int64
	Format        models.FormatDescriptor

	stream  *relay.Stream
	release func()
	once    sync.Once
}

func (d *Download) Read(p []byte) (int, error) {
	return d.stream.Read(p)
}

// BytesRead reports how many bytes have come from the origin so far.
func (d *Download) BytesRead() int64 {
	return d.stream.BytesRead()
}

// Close ends the relay and frees its download slot.
func (d *Download) Close() error {
	err := d.stream.Close()
	d.once.Do(d.release)
	return err
}
