// Package catalog turns an extractor's raw format list into the grouped,
// de-duplicated and sorted catalog shown to clients.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/denisAlshanov/ytproxy/internal/metrics"
	"github.com/denisAlshanov/ytproxy/internal/models"
	"github.com/denisAlshanov/ytproxy/internal/services/extractor"
	"github.com/denisAlshanov/ytproxy/internal/utils"
)

type Builder struct {
	extractor extractor.Extractor
	userAgent string
}

func NewBuilder(ext extractor.Extractor, userAgent string) *Builder {
	return &Builder{
		extractor: ext,
		userAgent: userAgent,
	}
}

// Build fetches videoID and normalizes its formats. Any extractor failure is
// returned as *extractor.FetchError and no partial catalog is produced.
func (b *Builder) Build(ctx context.Context, videoID string) (*models.VideoCatalog, error) {
	logger := utils.LoggerFromContext(ctx).WithFields(utils.Fields{
		"video_id": videoID,
		"backend":  b.extractor.Name(),
	})

	start := time.Now()
	info, err := b.extractor.FetchInfo(ctx, videoID, extractor.FetchOptions{UserAgent: b.userAgent})
	metrics.RecordExtractorCall(b.extractor.Name(), "info", start, err)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch video info")
		return nil, &extractor.FetchError{Backend: b.extractor.Name(), Op: "info", Err: err}
	}
	if info == nil {
		err := fmt.Errorf("extractor returned no info for %s", videoID)
		return nil, &extractor.FetchError{Backend: b.extractor.Name(), Op: "info", Err: err}
	}

	catalog := &models.VideoCatalog{
		ID:        info.ID,
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Duration:  info.DurationSeconds,
		Formats:   Normalize(info.Formats),
	}
	if catalog.ID == "" {
		catalog.ID = videoID
	}

	logger.WithFields(utils.Fields{
		"raw_formats":   len(info.Formats),
		"video_formats": len(catalog.Formats.Video),
		"audio_formats": len(catalog.Formats.Audio),
	}).Info("Built format catalog")

	return catalog, nil
}

// Normalize keeps muxed formats (video with audio) and audio-only formats,
// drops everything else, and collapses muxed formats that share a quality
// and container down to the highest bitrate. Video is ordered by quality
// descending, audio by bitrate descending. Both groups are never nil.
func Normalize(raw []extractor.RawFormat) models.Formats {
	translated := lo.FilterMap(raw, func(r extractor.RawFormat, _ int) (extractor.Format, bool) {
		return extractor.Translate(r)
	})
	translated = lo.UniqBy(translated, func(f extractor.Format) string {
		return f.Key
	})

	muxed := lo.Filter(translated, func(f extractor.Format, _ int) bool {
		return f.HasVideo && f.HasAudio
	})
	audioOnly := lo.Filter(translated, func(f extractor.Format, _ int) bool {
		return f.HasAudio && !f.HasVideo
	})

	video := lo.Map(collapseByQuality(muxed), func(f extractor.Format, _ int) models.FormatDescriptor {
		return videoDescriptor(f)
	})
	audio := lo.Map(audioOnly, func(f extractor.Format, _ int) models.FormatDescriptor {
		return audioDescriptor(f)
	})

	sort.SliceStable(video, func(i, j int) bool {
		return video[i].QualityRank > video[j].QualityRank
	})
	sort.SliceStable(audio, func(i, j int) bool {
		return audio[i].Bitrate > audio[j].Bitrate
	})

	return models.Formats{
		Video: video,
		Audio: audio,
	}
}

type groupKey struct {
	rank      int
	container string
}

// collapseByQuality keeps one format per (quality, container). The survivor
// has the highest bitrate; equal bitrates go to the smaller key so the result
// does not depend on input order. The survivor takes the slot of the group's
// first member.
func collapseByQuality(formats []extractor.Format) []extractor.Format {
	result := make([]extractor.Format, 0, len(formats))
	slots := make(map[groupKey]int)

	for _, f := range formats {
		key := groupKey{rank: f.QualityRank, container: f.Container}
		idx, seen := slots[key]
		if !seen {
			slots[key] = len(result)
			result = append(result, f)
			continue
		}
		if replaces(f, result[idx]) {
			result[idx] = f
		}
	}

	return result
}

func replaces(candidate, kept extractor.Format) bool {
	if candidate.Bitrate != kept.Bitrate {
		return candidate.Bitrate > kept.Bitrate
	}
	return candidate.Key < kept.Key
}

func videoDescriptor(f extractor.Format) models.FormatDescriptor {
	return models.FormatDescriptor{
		FormatID:      f.Key,
		Kind:          models.FormatKindVideo,
		Quality:       f.QualityLabel,
		QualityRank:   f.QualityRank,
		Container:     f.Container,
		VideoCodec:    f.VideoCodec,
		AudioCodec:    f.AudioCodec,
		Bitrate:       f.Bitrate,
		ContentLength: f.Size,
		MimeType:      f.MimeType,
		Label:         fmt.Sprintf("%s (%s)", f.QualityLabel, f.Container),
	}
}

func audioDescriptor(f extractor.Format) models.FormatDescriptor {
	quality := "Audio"
	if kbps := f.Bitrate / 1000; kbps > 0 {
		quality = fmt.Sprintf("%dkbps", kbps)
	}
	return models.FormatDescriptor{
		FormatID:      f.Key,
		Kind:          models.FormatKindAudio,
		Quality:       quality,
		Container:     f.Container,
		AudioCodec:    f.AudioCodec,
		Bitrate:       f.Bitrate,
		ContentLength: f.Size,
		MimeType:      f.MimeType,
		Label:         fmt.Sprintf("%s (%s)", quality, f.Container),
	}
}
