package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, BackendYouTube, cfg.Extractor.Backend)
	assert.Equal(t, 45*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, time.Hour, cfg.Download.DownloadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Download.UpstreamHeaderTimeout)
	assert.False(t, cfg.Download.TLSFingerprint)
	assert.Equal(t, 16, cfg.Download.MaxConcurrentDownloads)
	assert.Contains(t, cfg.Download.UserAgent, "Mozilla/5.0")
	assert.Equal(t, "custom", cfg.CORS.Profile)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("EXTRACTOR_BACKEND", "YTDLP")
	t.Setenv("YTDLP_PATH", "/opt/bin/yt-dlp")
	t.Setenv("DOWNLOAD_TIMEOUT", "10m")
	t.Setenv("UPSTREAM_TLS_FINGERPRINT", "true")
	t.Setenv("CORS_PROFILE", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, BackendYtDlp, cfg.Extractor.Backend)
	assert.Equal(t, "/opt/bin/yt-dlp", cfg.Extractor.YtDlpPath)
	assert.Equal(t, 10*time.Minute, cfg.Download.DownloadTimeout)
	assert.True(t, cfg.Download.TLSFingerprint)
	assert.Equal(t, "production", cfg.CORS.Profile)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad download timeout", "DOWNLOAD_TIMEOUT", "forever"},
		{"bad extractor timeout", "EXTRACTOR_TIMEOUT", "soon"},
		{"bad rate window", "RATE_LIMIT_WINDOW", "1 minute"},
		{"unknown backend", "EXTRACTOR_BACKEND", "youtube-dl"},
		{"zero concurrent downloads", "MAX_CONCURRENT_DOWNLOADS", "0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
