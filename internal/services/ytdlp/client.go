// Package ytdlp is the extractor backend that shells out to the yt-dlp binary.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/denisAlshanov/ytproxy/internal/services/extractor"
)

const backendName = "ytdlp"

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client runs `yt-dlp -J` and hands back its format list untouched.
type Client struct {
	binaryPath string
	timeout    time.Duration
	userAgent  string
	run        runFunc
}

// infoJSON is the part of yt-dlp's info dict this backend reads directly.
// Formats stay as generic maps so their field names survive.
type infoJSON struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Thumbnail string                `json:"thumbnail"`
	Duration  float64               `json:"duration"`
	URL       string                `json:"url"`
	Formats   []extractor.RawFormat `json:"formats"`
}

func NewClient(binaryPath string, timeout time.Duration, userAgent string) *Client {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	return &Client{
		binaryPath: binaryPath,
		timeout:    timeout,
		userAgent:  userAgent,
		run:        runCommand,
	}
}

var _ extractor.Extractor = (*Client)(nil)

func (c *Client) Name() string {
	return backendName
}

func (c *Client) Ready(ctx context.Context) error {
	if _, err := exec.LookPath(c.binaryPath); err != nil {
		return fmt.Errorf("yt-dlp not found: %w", err)
	}
	return nil
}

// FetchInfo runs yt-dlp in JSON mode. With opts.Format set yt-dlp resolves
// exactly that format and reports its URL at the top level.
func (c *Client) FetchInfo(ctx context.Context, urlOrID string, opts extractor.FetchOptions) (*extractor.RawInfo, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	output, err := c.run(ctx, c.binaryPath, c.args(urlOrID, opts)...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp error: %w", err)
	}

	var data infoJSON
	if err := json.Unmarshal(output, &data); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	return &extractor.RawInfo{
		ID:              data.ID,
		Title:           data.Title,
		Thumbnail:       data.Thumbnail,
		DurationSeconds: int64(data.Duration),
		URL:             data.URL,
		Formats:         data.Formats,
	}, nil
}

func (c *Client) args(urlOrID string, opts extractor.FetchOptions) []string {
	args := []string{"-J", "--no-playlist", "--no-warnings"}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = c.userAgent
	}
	if userAgent != "" {
		args = append(args, "--user-agent", userAgent)
	}

	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}

	return append(args, "--", watchURL(urlOrID))
}

func watchURL(urlOrID string) string {
	if strings.Contains(urlOrID, "://") {
		return urlOrID
	}
	return "https://www.youtube.com/watch?v=" + urlOrID
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// lastLine returns the final non-empty stderr line, where yt-dlp puts its ERROR.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
