// Package selector picks one format variant out of a descriptor's
// format list. Selection is deterministic: the same descriptor and
// request always yield the same variant.
package selector

import (
	"strconv"
	"strings"

	"github.com/snapgrab/snapgrab/internal/media"
	"github.com/snapgrab/snapgrab/internal/strategy"
)

// DefaultTargetHeight is used when the request carries no quality token.
const DefaultTargetHeight = 720

// extRank orders container preference among otherwise-equal variants.
var extRank = map[string]int{"mp4": 2, "webm": 1}

// Request describes what the caller wants selected.
type Request struct {
	// Quality is the quality token: "720p", "1080", "best", or empty.
	Quality string
	// AudioOnly selects an audio rendition instead of video.
	AudioOnly bool
}

// ParseQuality resolves a quality token to a target height.
// best=true means "highest available" and overrides the height.
func ParseQuality(q string) (height int, best bool) {
	q = strings.ToLower(strings.TrimSpace(q))
	switch q {
	case "", "default":
		return DefaultTargetHeight, false
	case "best", "max", "highest":
		return 0, true
	case "4k", "uhd":
		return 2160, false
	}
	digits := strings.TrimSuffix(q, "p")
	if n, err := strconv.Atoi(digits); err == nil && n > 0 {
		return n, false
	}
	return DefaultTargetHeight, false
}

// Select picks a variant from the descriptor. When the descriptor has no
// format list, the canonical MediaURL stands and Select returns nil with
// no error. A non-empty format list with no eligible variant is a
// no-eligible-format failure.
func Select(d *media.Descriptor, req Request) (*media.FormatVariant, error) {
	if len(d.Formats) == 0 {
		return nil, nil
	}
	if req.AudioOnly {
		return selectAudio(d.Formats)
	}
	return selectVideo(d.Formats, req.Quality)
}

// selectAudio prefers pure audio tracks by bitrate; muxed variants are a
// fallback when no pure track exists.
func selectAudio(formats []media.FormatVariant) (*media.FormatVariant, error) {
	var best *media.FormatVariant
	for i := range formats {
		f := &formats[i]
		if f.URL == "" || !f.HasAudio || f.HasVideo {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best != nil {
		return best, nil
	}
	for i := range formats {
		f := &formats[i]
		if f.URL == "" || !f.HasAudio {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best == nil {
		return nil, strategy.NewError(strategy.KindNoEligibleFormat, "no audio rendition available", nil)
	}
	return best, nil
}

// selectVideo picks among muxed variants: the tallest at or under the
// target height, ties broken by bitrate then container preference then
// list order. When nothing fits under the target, the closest variant
// above it wins.
func selectVideo(formats []media.FormatVariant, quality string) (*media.FormatVariant, error) {
	target, wantBest := ParseQuality(quality)

	var under, over *media.FormatVariant
	for i := range formats {
		f := &formats[i]
		if f.URL == "" || !f.HasVideo || !f.HasAudio {
			continue
		}
		if wantBest || f.Height <= target {
			if betterUnder(f, under) {
				under = f
			}
		} else if over == nil || f.Height < over.Height {
			over = f
		}
	}

	if under != nil {
		return under, nil
	}
	if over != nil {
		return over, nil
	}
	return nil, strategy.NewError(strategy.KindNoEligibleFormat, "no muxed video rendition available", nil)
}

// betterUnder reports whether candidate beats the incumbent among
// at-or-under-target variants. Strict comparisons keep the earliest
// variant on full ties.
func betterUnder(candidate, incumbent *media.FormatVariant) bool {
	if incumbent == nil {
		return true
	}
	if candidate.Height != incumbent.Height {
		return candidate.Height > incumbent.Height
	}
	if candidate.Bitrate != incumbent.Bitrate {
		return candidate.Bitrate > incumbent.Bitrate
	}
	return extRank[strings.ToLower(candidate.Ext)] > extRank[strings.ToLower(incumbent.Ext)]
}
