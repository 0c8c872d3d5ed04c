package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type FormatKind string

const (
	FormatKindVideo FormatKind = "video"
	FormatKindAudio FormatKind = "audio"
)

// FormatDescriptor is one downloadable variant as presented to the client.
// FormatID is only meaningful within the session that produced it.
type FormatDescriptor struct {
	FormatID      string     `json:"formatId"`
	Kind          FormatKind `json:"type"`
	Quality       string     `json:"quality"`
	QualityRank   int        `json:"qualityRank"`
	Container     string     `json:"container"`
	VideoCodec    string     `json:"videoCodec,omitempty"`
	AudioCodec    string     `json:"audioCodec,omitempty"`
	Bitrate       int64      `json:"bitrate"`
	ContentLength int64      `json:"contentLength,omitempty"`
	MimeType      string     `json:"mimeType"`
	Label         string     `json:"label"`
}

type Formats struct {
	Video []FormatDescriptor `json:"video"`
	Audio []FormatDescriptor `json:"audio"`
}

// Find looks a format up in both groups.
func (f Formats) Find(formatID string) (FormatDescriptor, bool) {
	for _, group := range [][]FormatDescriptor{f.Video, f.Audio} {
		for _, d := range group {
			if d.FormatID == formatID {
				return d, true
			}
		}
	}
	return FormatDescriptor{}, false
}

type VideoCatalog struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail"`
	Duration  int64   `json:"duration"`
	Formats   Formats `json:"formats"`
}

// FormatKey accepts either a JSON string or a JSON number, since mobile
// clients send itags as integers.
type FormatKey string

func (k *FormatKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*k = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = FormatKey(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("formatId must be a string or number: %w", err)
	}
	*k = FormatKey(normalizeNumber(n))
	return nil
}

// normalizeNumber renders integral numbers such as 18.0 or 1.8e1 the way
// itags are keyed.
func normalizeNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return n.String()
	}
	return strconv.FormatInt(int64(f), 10)
}

func (k FormatKey) String() string {
	return string(k)
}

type VideoInfoQuery struct {
	URL string `form:"url" binding:"required"`
}

type DownloadRequest struct {
	URL      string    `json:"url" binding:"required"`
	FormatID FormatKey `json:"formatId" binding:"required"`
}

type ErrorResponse struct {
	Error     interface{} `json:"error"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}
