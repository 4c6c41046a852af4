// Package media defines the canonical normalized output of a successful
// extraction and the URL fingerprinting used for cache keys.
package media

import (
	"errors"
	"fmt"
)

// FormatVariant is one encoded rendition of a media item.
type FormatVariant struct {
	ID       string `json:"id"`
	Ext      string `json:"ext"`
	URL      string `json:"url"`
	HasVideo bool   `json:"has_video"`
	HasAudio bool   `json:"has_audio"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	FPS      int    `json:"fps,omitempty"`
	// Bitrate is the total bitrate in kbit/s (actual or estimated).
	Bitrate int `json:"bitrate,omitempty"`
	// Filesize in bytes; 0 when unknown.
	Filesize int64 `json:"filesize,omitempty"`
}

// Descriptor is the normalized result of resolving a source URL.
// All fields except Platform, MediaURL, and Method are best-effort:
// strategies fill what their upstream exposes.
type Descriptor struct {
	Platform    string `json:"platform"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	// DurationSec is the media duration in seconds; 0 when unknown.
	DurationSec int    `json:"duration,omitempty"`
	MediaURL    string `json:"media_url"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Uploader    string `json:"uploader,omitempty"`
	ViewCount   int64  `json:"view_count,omitempty"`
	LikeCount   int64  `json:"like_count,omitempty"`
	CommentCount int64 `json:"comment_count,omitempty"`
	// UploadDate is YYYYMMDD as reported by the upstream, unparsed.
	UploadDate string `json:"upload_date,omitempty"`
	// Method names the strategy that produced this descriptor.
	Method  string          `json:"method"`
	Formats []FormatVariant `json:"formats,omitempty"`
}

var (
	// ErrNoMediaURL marks a descriptor with no resolvable canonical URL.
	// Treated as a classified failure by the orchestrator, never as a
	// partial success.
	ErrNoMediaURL = errors.New("media: descriptor has no resolvable media url")
	// ErrNoFormatURL marks a formats list where no variant carries a URL.
	ErrNoFormatURL = errors.New("media: no format variant has a resolvable url")
)

// AllowListFunc reports whether a media URL is acceptable for the
// descriptor's platform. Wired from the platform registry.
type AllowListFunc func(platform, mediaURL string) bool

// Validate enforces the descriptor invariants:
// a non-empty media URL must pass the platform allow-list, and a
// non-empty formats list must contain at least one variant with a URL.
func (d *Descriptor) Validate(allowed AllowListFunc) error {
	if d.MediaURL == "" {
		return ErrNoMediaURL
	}
	if allowed != nil && !allowed(d.Platform, d.MediaURL) {
		return fmt.Errorf("media: url host not in %s allow-list", d.Platform)
	}
	if len(d.Formats) > 0 {
		ok := false
		for i := range d.Formats {
			if d.Formats[i].URL != "" {
				ok = true
				break
			}
		}
		if !ok {
			return ErrNoFormatURL
		}
	}
	return nil
}

// Resolution returns "WxH" for a variant, or "" when unknown.
func (v FormatVariant) Resolution() string {
	if v.Width <= 0 || v.Height <= 0 {
		if v.Height > 0 {
			return fmt.Sprintf("%dp", v.Height)
		}
		return ""
	}
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}
