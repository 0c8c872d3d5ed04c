package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadRequestFormatID(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected FormatKey
		wantErr  bool
	}{
		{"number", `{"url":"x","formatId":18}`, "18", false},
		{"integral float", `{"url":"x","formatId":18.0}`, "18", false},
		{"exponent", `{"url":"x","formatId":1.8e1}`, "18", false},
		{"fractional", `{"url":"x","formatId":18.5}`, "18.5", false},
		{"string", `{"url":"x","formatId":"251"}`, "251", false},
		{"yt-dlp style", `{"url":"x","formatId":"hls-1080p"}`, "hls-1080p", false},
		{"null", `{"url":"x","formatId":null}`, "", false},
		{"object", `{"url":"x","formatId":{}}`, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var req DownloadRequest
			err := json.Unmarshal([]byte(tc.body), &req)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, req.FormatID)
		})
	}
}

func TestFormatsFind(t *testing.T) {
	formats := Formats{
		Video: []FormatDescriptor{{FormatID: "18", Kind: FormatKindVideo}},
		Audio: []FormatDescriptor{{FormatID: "140", Kind: FormatKindAudio}},
	}

	d, ok := formats.Find("140")
	require.True(t, ok)
	assert.Equal(t, FormatKindAudio, d.Kind)

	_, ok = formats.Find("22")
	assert.False(t, ok)
}
