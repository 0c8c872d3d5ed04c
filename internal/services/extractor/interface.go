// Package extractor describes the collaborator that scrapes a video page and
// returns its raw format list, and the single translation step that turns
// backend-specific format records into a fixed shape.
package extractor

import (
	"context"
)

// Extractor fetches raw video information. Implementations deal with the
// site's anti-automation measures themselves.
type Extractor interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// FetchInfo resolves urlOrID. When opts.Format is set the result is
	// narrowed to that format and should carry its direct stream URL.
	FetchInfo(ctx context.Context, urlOrID string, opts FetchOptions) (*RawInfo, error)

	// Ready reports whether the backend can serve requests at all.
	Ready(ctx context.Context) error
}

type FetchOptions struct {
	Format    string
	UserAgent string
}

// RawFormat is a format record exactly as the backend produced it. Field
// names differ between backends, see Translate.
type RawFormat map[string]any

type RawInfo struct {
	ID              string
	Title           string
	Thumbnail       string
	DurationSeconds int64
	// URL is the top-level stream URL some backends return for a narrowed
	// request.
	URL     string
	Formats []RawFormat
}

// FetchError wraps any failure of an extractor call and reads as its cause.
// Op is "info" for the catalog fetch and "resolve" for the per-download
// re-resolution.
type FetchError struct {
	Backend string
	Op      string
	Err     error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
