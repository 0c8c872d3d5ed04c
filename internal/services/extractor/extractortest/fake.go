// Package extractortest provides an in-memory extractor for tests.
package extractortest

import (
	"context"
	"sync"

	"github.com/denisAlshanov/ytproxy/internal/services/extractor"
)

// Call is one recorded FetchInfo invocation.
type Call struct {
	URLOrID string
	Options extractor.FetchOptions
}

// Fake serves a fixed catalog. Narrowed requests get the matching format and
// the URL registered for it in StreamURLs.
type Fake struct {
	Info       *extractor.RawInfo
	StreamURLs map[string]string
	Err        error
	// ResolveErr, when set, fails only narrowed requests.
	ResolveErr error
	ReadyErr   error

	mu    sync.Mutex
	calls []Call
}

var _ extractor.Extractor = (*Fake)(nil)

func (f *Fake) Name() string {
	return "fake"
}

func (f *Fake) Ready(ctx context.Context) error {
	return f.ReadyErr
}

func (f *Fake) FetchInfo(ctx context.Context, urlOrID string, opts extractor.FetchOptions) (*extractor.RawInfo, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{URLOrID: urlOrID, Options: opts})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if opts.Format != "" && f.ResolveErr != nil {
		return nil, f.ResolveErr
	}

	info := *f.Info
	info.Formats = append([]extractor.RawFormat(nil), f.Info.Formats...)
	if opts.Format != "" {
		info.URL = f.StreamURLs[opts.Format]
	}
	return &info, nil
}

// Calls returns a copy of every recorded invocation.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
