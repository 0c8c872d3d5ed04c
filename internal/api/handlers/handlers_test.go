package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisAlshanov/ytproxy/internal/config"
	"github.com/denisAlshanov/ytproxy/internal/models"
	"github.com/denisAlshanov/ytproxy/internal/services/catalog"
	"github.com/denisAlshanov/ytproxy/internal/services/downloader"
	"github.com/denisAlshanov/ytproxy/internal/services/extractor"
	"github.com/denisAlshanov/ytproxy/internal/services/extractor/extractortest"
	"github.com/denisAlshanov/ytproxy/internal/services/relay"
)

const testVideoID = "dQw4w9WgXcQ"

type errorEnvelope struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

func newFake() *extractortest.Fake {
	return &extractortest.Fake{
		Info: &extractor.RawInfo{
			ID:              testVideoID,
			Title:           "Never Gonna Give You Up",
			Thumbnail:       "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
			DurationSeconds: 212,
			Formats: []extractor.RawFormat{
				{
					"itag":          float64(18),
					"mimeType":      `video/mp4; codecs="avc1.42001E, mp4a.40.2"`,
					"qualityLabel":  "360p",
					"bitrate":       float64(500000),
					"audioChannels": float64(2),
				},
				{
					"itag":          float64(251),
					"mimeType":      `audio/webm; codecs="opus"`,
					"bitrate":       float64(160000),
					"audioChannels": float64(2),
				},
			},
		},
		StreamURLs: map[string]string{},
	}
}

func setupRouter(fake *extractortest.Fake) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.DownloadConfig{
		DownloadTimeout:        10 * time.Second,
		UpstreamHeaderTimeout:  5 * time.Second,
		UserAgent:              "Mozilla/5.0 test",
		MaxConcurrentDownloads: 4,
	}
	svc := downloader.NewService(catalog.NewBuilder(fake, cfg.UserAgent), relay.NewProxy(fake, cfg), cfg)
	videoHandler := NewVideoHandler(svc)
	healthHandler := NewHealthHandler(fake)

	r := gin.New()
	r.GET("/api/info", videoHandler.GetVideoInfo)
	r.POST("/api/download", videoHandler.Download)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Readiness)
	r.GET("/live", healthHandler.Liveness)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Timestamp)
	return envelope
}

func TestGetVideoInfo(t *testing.T) {
	r := setupRouter(newFake())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/info?url=https://youtu.be/dQw4w9WgXcQ", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var catalog models.VideoCatalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.Equal(t, testVideoID, catalog.ID)
	assert.Equal(t, "Never Gonna Give You Up", catalog.Title)
	assert.Equal(t, int64(212), catalog.Duration)
	require.Len(t, catalog.Formats.Video, 1)
	require.Len(t, catalog.Formats.Audio, 1)
	assert.Equal(t, "18", catalog.Formats.Video[0].FormatID)
	assert.Equal(t, "251", catalog.Formats.Audio[0].FormatID)
	assert.NotContains(t, w.Body.String(), "googlevideo")
}

func TestGetVideoInfoErrors(t *testing.T) {
	testCases := []struct {
		name           string
		query          string
		extractorErr   error
		expectedStatus int
		expectedCode   string
	}{
		{"missing url", "", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not youtube", "?url=https://example.com/watch?v=abc", nil, http.StatusBadRequest, "INVALID_LINK_FORMAT"},
		{"extraction failure", "?url=dQw4w9WgXcQ", errors.New("Video unavailable"), http.StatusInternalServerError, "EXTRACTION_FAILED"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFake()
			fake.Err = tc.extractorErr
			r := setupRouter(fake)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/info"+tc.query, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
			envelope := decodeError(t, w)
			assert.Equal(t, tc.expectedCode, envelope.Error.Code)
			if tc.extractorErr != nil {
				assert.Contains(t, envelope.Error.Message, tc.extractorErr.Error())
			}
		})
	}
}

func TestDownloadStreamsAttachment(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = io.WriteString(w, "mp4-payload")
	}))
	defer origin.Close()

	fake := newFake()
	fake.StreamURLs["18"] = origin.URL
	r := setupRouter(fake)

	w := httptest.NewRecorder()
	body := `{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "formatId": 18}`
	req := httptest.NewRequest(http.MethodPost, "/api/download", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="NeverGonnaGiveYouUp.mp4"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, w.Header().Get("Content-Type"))
	assert.Equal(t, "11", w.Header().Get("Content-Length"))
	assert.Equal(t, "mp4-payload", w.Body.String())
}

func TestDownloadErrors(t *testing.T) {
	forbidden := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer forbidden.Close()

	testCases := []struct {
		name           string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{"missing format", `{"url": "dQw4w9WgXcQ"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad json", `{"url": `, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid link", `{"url": "https://vimeo.com/1", "formatId": "18"}`, http.StatusBadRequest, "INVALID_LINK_FORMAT"},
		{"unknown format", `{"url": "dQw4w9WgXcQ", "formatId": "22"}`, http.StatusBadRequest, "FORMAT_UNAVAILABLE"},
		{"upstream forbidden", `{"url": "dQw4w9WgXcQ", "formatId": "251"}`, http.StatusForbidden, "UPSTREAM_FAILED"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFake()
			fake.StreamURLs["251"] = forbidden.URL
			r := setupRouter(fake)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/download", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
			assert.Empty(t, w.Header().Get("Content-Disposition"))
			envelope := decodeError(t, w)
			assert.Equal(t, tc.expectedCode, envelope.Error.Code)
		})
	}
}

// brokenOrigin announces a 1000-byte body, sends prefix and then drops the
// connection.
func brokenOrigin(t *testing.T, prefix string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, prefix)
		w.(http.Flusher).Flush()

		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	}))
}

func TestDownloadUpstreamDropsBeforeFirstByte(t *testing.T) {
	origin := brokenOrigin(t, "")
	defer origin.Close()

	fake := newFake()
	fake.StreamURLs["18"] = origin.URL
	r := setupRouter(fake)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/download", strings.NewReader(`{"url": "dQw4w9WgXcQ", "formatId": 18}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.Empty(t, w.Header().Get("Content-Length"))

	envelope := decodeError(t, w)
	assert.Equal(t, "UPSTREAM_FAILED", envelope.Error.Code)
}

func TestDownloadUpstreamDropsMidTransfer(t *testing.T) {
	origin := brokenOrigin(t, "partial-bytes")
	defer origin.Close()

	fake := newFake()
	fake.StreamURLs["18"] = origin.URL
	r := setupRouter(fake)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/download", strings.NewReader(`{"url": "dQw4w9WgXcQ", "formatId": 18}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, w.Header().Get("Content-Type"))
	assert.Equal(t, "1000", w.Header().Get("Content-Length"))
	assert.Equal(t, "partial-bytes", w.Body.String())
}

func TestDownloadTruncatedBodyDropsClientConnection(t *testing.T) {
	origin := brokenOrigin(t, "partial-bytes")
	defer origin.Close()

	fake := newFake()
	fake.StreamURLs["18"] = origin.URL
	server := httptest.NewServer(setupRouter(fake))
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/download", "application/json", strings.NewReader(`{"url": "dQw4w9WgXcQ", "formatId": 18}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1000), resp.ContentLength)

	body, err := io.ReadAll(resp.Body)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "partial-bytes", string(body))
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		r := setupRouter(newFake())

		for _, path := range []string{"/health", "/ready", "/live"} {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})

	t.Run("extractor unavailable", func(t *testing.T) {
		fake := newFake()
		fake.ReadyErr = errors.New("yt-dlp not found in PATH")
		r := setupRouter(fake)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "yt-dlp not found")

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "unhealthy", response.Status)
		assert.Equal(t, "unhealthy", response.Services["extractor"].Status)
	})
}
