package api

import (
	"context"
	"net"
	"net/http"

	"github.com/snapgrab/snapgrab/internal/media"
	"github.com/snapgrab/snapgrab/internal/orchestrator"
	"github.com/snapgrab/snapgrab/internal/strategy"
)

// Resolver runs one resolution request through the strategy chain.
type Resolver interface {
	Resolve(ctx context.Context, req orchestrator.Request) (*orchestrator.Resolution, error)
}

type resolveRequest struct {
	URL        string `json:"url"`
	Quality    string `json:"quality"`
	AudioOnly  bool   `json:"audio_only"`
	Mobile     bool   `json:"mobile"`
	CookieBlob string `json:"cookie_blob"`
	NoCache    bool   `json:"no_cache"`
}

// qualityInfo describes the rendition that format selection settled on.
type qualityInfo struct {
	Resolution string `json:"resolution,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	Format     string `json:"format"`
}

// resolveResponse is the flat client payload of a successful resolution.
// Metadata comes from the descriptor; media_url and dimensions prefer the
// selected format when one was chosen.
type resolveResponse struct {
	Status       string       `json:"status"`
	RunID        string       `json:"run_id"`
	Platform     string       `json:"platform"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Thumbnail    string       `json:"thumbnail,omitempty"`
	Duration     int          `json:"duration,omitempty"`
	MediaURL     string       `json:"media_url"`
	Width        int          `json:"width,omitempty"`
	Height       int          `json:"height,omitempty"`
	Uploader     string       `json:"uploader,omitempty"`
	ViewCount    int64        `json:"view_count,omitempty"`
	LikeCount    int64        `json:"like_count,omitempty"`
	CommentCount int64        `json:"comment_count,omitempty"`
	UploadDate   string       `json:"upload_date,omitempty"`
	Method       string       `json:"method"`
	Quality      *qualityInfo `json:"quality,omitempty"`
	CacheHit     bool         `json:"cache_hit"`
}

func newResolveResponse(res *orchestrator.Resolution) resolveResponse {
	d := res.Descriptor
	out := resolveResponse{
		Status:       "success",
		RunID:        res.RunID,
		Platform:     d.Platform,
		Title:        d.Title,
		Description:  d.Description,
		Thumbnail:    d.Thumbnail,
		Duration:     d.DurationSec,
		MediaURL:     d.MediaURL,
		Width:        d.Width,
		Height:       d.Height,
		Uploader:     d.Uploader,
		ViewCount:    d.ViewCount,
		LikeCount:    d.LikeCount,
		CommentCount: d.CommentCount,
		UploadDate:   d.UploadDate,
		Method:       d.Method,
		CacheHit:     res.CacheHit,
	}
	if sel := res.SelectedFormat; sel != nil {
		out.MediaURL = sel.URL
		out.Width = sel.Width
		out.Height = sel.Height
		out.Quality = &qualityInfo{
			Resolution: sel.Resolution(),
			FPS:        sel.FPS,
			Bitrate:    sel.Bitrate,
			Format:     containerOf(sel),
		}
	}
	return out
}

func containerOf(v *media.FormatVariant) string {
	if v.Ext != "" {
		return v.Ext
	}
	return "mp4"
}

// HandleResolve handles POST /api/v1/resolve.
func HandleResolve(resolver Resolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body resolveRequest
		if err := DecodeBody(r, &body); err != nil {
			writeDecodeBodyError(w, err)
			return
		}
		if body.URL == "" {
			writeExtractionError(w, strategy.NewError(strategy.KindInvalidURL, "url is required", nil))
			return
		}

		res, err := resolver.Resolve(r.Context(), orchestrator.Request{
			URL:        body.URL,
			Quality:    body.Quality,
			AudioOnly:  body.AudioOnly,
			Mobile:     body.Mobile,
			CookieBlob: body.CookieBlob,
			NoCache:    body.NoCache,
			ClientIP:   clientIP(r),
		})
		if err != nil {
			writeExtractionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, newResolveResponse(res))
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
