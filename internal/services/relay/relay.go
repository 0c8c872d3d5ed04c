// Package relay re-resolves a format to its short-lived origin URL and pipes
// the origin's bytes through to the caller.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/denisAlshanov/ytproxy/internal/config"
	"github.com/denisAlshanov/ytproxy/internal/metrics"
	"github.com/denisAlshanov/ytproxy/internal/services/extractor"
	"github.com/denisAlshanov/ytproxy/internal/utils"
)

var ErrFormatUnavailable = errors.New("format not available for this video")

// UpstreamStatusError is returned when the origin answers with a non-2xx
// status. Nothing is retried.
type UpstreamStatusError struct {
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

type Proxy struct {
	extractor extractor.Extractor
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func NewProxy(ext extractor.Extractor, cfg *config.DownloadConfig) *Proxy {
	return &Proxy{
		extractor: ext,
		client: &http.Client{
			Transport: newTransport(cfg.UpstreamHeaderTimeout, cfg.TLSFingerprint),
		},
		userAgent: cfg.UserAgent,
		timeout:   cfg.DownloadTimeout,
	}
}

// Open resolves formatKey for videoID and starts the origin request. The
// returned Stream lives until ctx ends, the download timeout fires, or the
// caller closes it.
func (p *Proxy) Open(ctx context.Context, videoID, formatKey string) (*Stream, error) {
	ctx = utils.WithVideo(ctx, videoID, formatKey)
	logger := utils.LoggerFromContext(ctx)

	var (
		streamCtx context.Context
		cancel    context.CancelFunc
	)
	if p.timeout > 0 {
		streamCtx, cancel = context.WithTimeout(ctx, p.timeout)
	} else {
		streamCtx, cancel = context.WithCancel(ctx)
	}

	originURL, err := p.resolve(streamCtx, videoID, formatKey)
	if err != nil {
		cancel()
		if errors.Is(err, ErrFormatUnavailable) {
			metrics.RecordRelayRejected()
		}
		return nil, err
	}

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, originURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	setBrowserHeaders(req, p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		logger.WithError(err).Error("Upstream request failed")
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		metrics.RecordRelayRejected()
		logger.WithField("status_code", resp.StatusCode).Warn("Upstream rejected stream request")
		return nil, &UpstreamStatusError{StatusCode: resp.StatusCode}
	}

	metrics.RelayStarted()
	logger.WithFields(utils.Fields{
		"content_length": resp.ContentLength,
		"content_type":   resp.Header.Get("Content-Type"),
	}).Info("Upstream stream opened")

	return &Stream{
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
		ctx:           streamCtx,
		body:          resp.Body,
		cancel:        cancel,
	}, nil
}

func (p *Proxy) resolve(ctx context.Context, videoID, formatKey string) (string, error) {
	start := time.Now()
	info, err := p.extractor.FetchInfo(ctx, videoID, extractor.FetchOptions{
		Format:    formatKey,
		UserAgent: p.userAgent,
	})
	metrics.RecordExtractorCall(p.extractor.Name(), "resolve", start, err)
	if err != nil {
		return "", &extractor.FetchError{Backend: p.extractor.Name(), Op: "resolve", Err: err}
	}

	originURL := extractor.OriginURL(info, formatKey)
	if originURL == "" {
		return "", ErrFormatUnavailable
	}
	return originURL, nil
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.youtube.com/")
	req.Header.Set("Origin", "https://www.youtube.com")
}

// Stream is an open origin body. ContentLength is -1 when the origin did not
// send one.
type Stream struct {
	StatusCode    int
	ContentLength int64
	ContentType   string

	ctx    context.Context
	body   io.ReadCloser
	cancel context.CancelFunc

	mu    sync.Mutex
	bytes int64
	eof   bool
	once  sync.Once
}

func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)

	s.mu.Lock()
	s.bytes += int64(n)
	if err == io.EOF {
		s.eof = true
	}
	s.mu.Unlock()

	return n, err
}

// Cancel aborts the origin connection without waiting for Close.
func (s *Stream) Cancel() {
	s.cancel()
}

// Close releases the origin connection. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		bytes, eof := s.bytes, s.eof
		s.mu.Unlock()

		outcome := metrics.RelayOutcomeUpstream
		switch {
		case eof:
			outcome = metrics.RelayOutcomeCompleted
		case errors.Is(s.ctx.Err(), context.Canceled):
			outcome = metrics.RelayOutcomeClientAbort
		}

		s.cancel()
		err = s.body.Close()
		metrics.RelayFinished(outcome, bytes)
	})
	return err
}

// BytesRead reports how many bytes have come from the origin so far.
func (s *Stream) BytesRead() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}
