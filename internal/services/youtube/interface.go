// Package youtube resolves video IDs from links and provides the kkdai/youtube
// extractor backend.
package youtube

import (
	"github.com/denisAlshanov/ytproxy/internal/services/extractor"
)

var _ extractor.Extractor = (*Client)(nil)
