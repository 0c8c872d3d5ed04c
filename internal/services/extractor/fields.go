package extractor

import (
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"regexp"
	"strconv"
	"strings"
)

// Format is the fixed shape every RawFormat is translated into. Nothing past
// this file looks at backend field names.
type Format struct {
	Key          string
	HasVideo     bool
	HasAudio     bool
	QualityLabel string
	QualityRank  int
	Container    string
	VideoCodec   string
	AudioCodec   string
	Bitrate      int64
	Size         int64
	MimeType     string
	URL          string
}

// numField is a candidate field name plus the factor that converts its value
// to the unit Format uses (bits/s, bytes).
type numField struct {
	name  string
	scale float64
}

var (
	keyFields       = []string{"itag", "format_id", "formatId", "id"}
	mimeFields      = []string{"mimeType", "mime_type", "mime"}
	containerFields = []string{"ext", "container", "extension"}
	labelFields     = []string{"qualityLabel", "quality_label"}
	noteFields      = []string{"format_note", "formatNote"}
	urlFields       = []string{"url", "download_url", "downloadUrl", "stream_url"}
	protocolFields  = []string{"protocol"}

	videoFlagFields  = []string{"hasVideo", "has_video"}
	audioFlagFields  = []string{"hasAudio", "has_audio"}
	videoCodecFields = []string{"videoCodec", "vcodec", "video_codec"}
	audioCodecFields = []string{"audioCodec", "acodec", "audio_codec"}

	heightFields   = []numField{{"height", 1}}
	widthFields    = []numField{{"width", 1}}
	channelFields  = []numField{{"audioChannels", 1}, {"audio_channels", 1}, {"audioSampleRate", 1}, {"asr", 1}}
	bitrateFields  = []numField{{"bitrate", 1}, {"averageBitrate", 1}, {"average_bitrate", 1}, {"tbr", 1000}, {"abr", 1000}}
	sizeFields     = []numField{{"contentLength", 1}, {"content_length", 1}, {"filesize", 1}, {"filesize_approx", 1}}
	qualityDigits  = regexp.MustCompile(`(\d+)`)
	audioCodecTags = []string{"mp4a", "opus", "vorbis", "ac-3", "ec-3", "flac", "mp3", "alac", "dtsc"}
)

// Translate normalizes one raw record. ok is false for records that carry
// neither video nor audio, have no key, or point at a manifest rather than a
// byte stream.
func Translate(raw RawFormat) (Format, bool) {
	f := Format{}

	key, found := lookupString(raw, keyFields...)
	if !found {
		return f, false
	}
	f.Key = key

	if protocol, found := lookupString(raw, protocolFields...); found && isManifestProtocol(protocol) {
		return f, false
	}

	mediaType, codecs := parseMimeType(raw)
	f.HasVideo = hasVideo(raw, mediaType, codecs)
	f.HasAudio = hasAudio(raw, mediaType, codecs)
	if !f.HasVideo && !f.HasAudio {
		return f, false
	}

	f.VideoCodec = codecName(raw, videoCodecFields, codecs, false)
	f.AudioCodec = codecName(raw, audioCodecFields, codecs, true)
	if !f.HasVideo {
		f.VideoCodec = ""
	}
	if !f.HasAudio {
		f.AudioCodec = ""
	}

	f.Container = container(raw, mediaType, f.HasVideo)
	f.MimeType = mimeType(raw, f)

	height, _ := lookupNumber(raw, heightFields...)
	f.QualityLabel, f.QualityRank = quality(raw, int(height))

	if bitrate, found := lookupNumber(raw, bitrateFields...); found {
		f.Bitrate = int64(math.Round(bitrate))
	}
	if size, found := lookupNumber(raw, sizeFields...); found {
		f.Size = int64(size)
	}
	f.URL, _ = lookupString(raw, urlFields...)

	return f, true
}

// OriginURL finds the direct stream URL for key in a narrowed result. The
// top-level URL wins, then the matching format's own URL.
func OriginURL(info *RawInfo, key string) string {
	if info == nil {
		return ""
	}
	if info.URL != "" {
		return info.URL
	}
	for _, raw := range info.Formats {
		rawKey, found := lookupString(raw, keyFields...)
		if !found || rawKey != key {
			continue
		}
		if u, found := lookupString(raw, urlFields...); found {
			return u
		}
	}
	return ""
}

// ParseQuality pulls the leading number out of a label such as "720p60".
func ParseQuality(label string) int {
	matches := qualityDigits.FindStringSubmatch(label)
	if len(matches) > 1 {
		if q, err := strconv.Atoi(matches[1]); err == nil {
			return q
		}
	}
	return 0
}

func hasVideo(raw RawFormat, mediaType string, codecs []string) bool {
	if v, found := lookupBool(raw, videoFlagFields...); found {
		return v
	}
	if codec, found := lookupString(raw, videoCodecFields...); found {
		return codec != "none"
	}
	if strings.HasPrefix(mediaType, "audio/") {
		return false
	}
	if strings.HasPrefix(mediaType, "video/") {
		if len(codecs) == 0 {
			return true
		}
		for _, c := range codecs {
			if !isAudioCodec(c) {
				return true
			}
		}
		return false
	}
	if w, _ := lookupNumber(raw, widthFields...); w > 0 {
		return true
	}
	h, _ := lookupNumber(raw, heightFields...)
	return h > 0
}

func hasAudio(raw RawFormat, mediaType string, codecs []string) bool {
	if v, found := lookupBool(raw, audioFlagFields...); found {
		return v
	}
	if codec, found := lookupString(raw, audioCodecFields...); found {
		return codec != "none"
	}
	if strings.HasPrefix(mediaType, "audio/") {
		return true
	}
	for _, c := range codecs {
		if isAudioCodec(c) {
			return true
		}
	}
	if n, _ := lookupNumber(raw, channelFields...); n > 0 {
		return true
	}
	return false
}

func codecName(raw RawFormat, fields []string, codecs []string, audio bool) string {
	if codec, found := lookupString(raw, fields...); found && codec != "none" {
		return codec
	}
	for _, c := range codecs {
		if isAudioCodec(c) == audio {
			return c
		}
	}
	return ""
}

func container(raw RawFormat, mediaType string, video bool) string {
	if c, found := lookupString(raw, containerFields...); found {
		return strings.TrimSuffix(strings.ToLower(c), "_dash")
	}

	switch mediaType {
	case "video/mp4":
		return "mp4"
	case "audio/mp4":
		return "m4a"
	case "video/webm", "audio/webm":
		return "webm"
	case "video/3gpp":
		return "3gp"
	case "audio/mpeg":
		return "mp3"
	}

	if video {
		return "mp4"
	}
	return "m4a"
}

func mimeType(raw RawFormat, f Format) string {
	if m, found := lookupString(raw, mimeFields...); found {
		return m
	}

	prefix := "video/"
	if !f.HasVideo {
		prefix = "audio/"
	}
	switch f.Container {
	case "m4a":
		return "audio/mp4"
	case "mp3":
		return "audio/mpeg"
	case "3gp":
		return "video/3gpp"
	case "mp4", "webm", "ogg":
		return prefix + f.Container
	}
	return "application/octet-stream"
}

func quality(raw RawFormat, height int) (string, int) {
	label, _ := lookupString(raw, labelFields...)
	if label == "" && height > 0 {
		label = fmt.Sprintf("%dp", height)
	}
	if label == "" {
		label, _ = lookupString(raw, noteFields...)
	}

	rank := ParseQuality(label)
	if rank == 0 && height > 0 {
		rank = height
	}
	if label == "" {
		label = "Unknown"
	}
	return label, rank
}

func parseMimeType(raw RawFormat) (string, []string) {
	m, found := lookupString(raw, mimeFields...)
	if !found {
		return "", nil
	}

	mediaType, params, err := mime.ParseMediaType(m)
	if err != nil {
		// Fall back to whatever precedes the first parameter.
		return strings.ToLower(strings.TrimSpace(strings.SplitN(m, ";", 2)[0])), nil
	}

	var codecs []string
	for _, c := range strings.Split(params["codecs"], ",") {
		if c = strings.TrimSpace(c); c != "" {
			codecs = append(codecs, c)
		}
	}
	return mediaType, codecs
}

func isAudioCodec(codec string) bool {
	codec = strings.ToLower(codec)
	for _, tag := range audioCodecTags {
		if strings.HasPrefix(codec, tag) {
			return true
		}
	}
	return false
}

func isManifestProtocol(protocol string) bool {
	protocol = strings.ToLower(protocol)
	return strings.Contains(protocol, "m3u8") ||
		strings.Contains(protocol, "dash") ||
		strings.Contains(protocol, "f4m") ||
		strings.Contains(protocol, "ism")
}

// lookupString returns the first candidate field holding a non-empty scalar.
func lookupString(raw RawFormat, names ...string) (string, bool) {
	for _, name := range names {
		v, ok := raw[name]
		if !ok || v == nil {
			continue
		}

		var s string
		switch val := v.(type) {
		case string:
			s = strings.TrimSpace(val)
		case json.Number:
			s = val.String()
		case float64:
			s = formatFloat(val)
		case float32:
			s = formatFloat(float64(val))
		case int:
			s = strconv.Itoa(val)
		case int64:
			s = strconv.FormatInt(val, 10)
		case bool:
			s = strconv.FormatBool(val)
		default:
			continue
		}
		if s != "" {
			return s, true
		}
	}
	return "", false
}

// lookupNumber returns the first candidate field that parses as a number,
// already scaled.
func lookupNumber(raw RawFormat, fields ...numField) (float64, bool) {
	for _, field := range fields {
		v, ok := raw[field.name]
		if !ok || v == nil {
			continue
		}

		var n float64
		switch val := v.(type) {
		case float64:
			n = val
		case float32:
			n = float64(val)
		case int:
			n = float64(val)
		case int64:
			n = float64(val)
		case json.Number:
			parsed, err := val.Float64()
			if err != nil {
				continue
			}
			n = parsed
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				continue
			}
			n = parsed
		default:
			continue
		}
		return n * field.scale, true
	}
	return 0, false
}

func lookupBool(raw RawFormat, names ...string) (bool, bool) {
	for _, name := range names {
		switch val := raw[name].(type) {
		case bool:
			return val, true
		case string:
			if b, err := strconv.ParseBool(val); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
