package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/snapgrab/snapgrab/internal/media"
	"github.com/snapgrab/snapgrab/internal/netutil"
)

// MirrorAPI resolves media through a third-party mirror API that accepts a
// page URL and returns JSON metadata (tikwm-style contract). It never
// needs platform cookies.
type MirrorAPI struct {
	name     string
	platform string
	// endpoint receives the query-escaped source URL via %s.
	endpoint string
	timeout  time.Duration
}

// NewMirrorAPI builds a mirror API strategy.
// endpoint example: "https://www.tikwm.com/api/?url=%s".
func NewMirrorAPI(name, platform, endpoint string, timeout time.Duration) *MirrorAPI {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MirrorAPI{name: name, platform: platform, endpoint: endpoint, timeout: timeout}
}

func (m *MirrorAPI) Name() string       { return m.name }
func (m *MirrorAPI) RequiresAuth() bool { return false }

// mirrorResponse is the wire shape shared by tikwm-style mirrors:
// code 0 means success, data carries the media fields.
type mirrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Play     string `json:"play"`
		Wmplay   string `json:"wmplay"`
		Music    string `json:"music"`
		Title    string `json:"title"`
		Cover    string `json:"cover"`
		Duration int    `json:"duration"`
		Size     int64  `json:"size"`
		Author   struct {
			Nickname string `json:"nickname"`
			UniqueID string `json:"unique_id"`
		} `json:"author"`
		PlayCount    int64 `json:"play_count"`
		DiggCount    int64 `json:"digg_count"`
		CommentCount int64 `json:"comment_count"`
	} `json:"data"`
}

// Attempt calls the mirror endpoint and normalizes its JSON answer.
func (m *MirrorAPI) Attempt(ctx context.Context, sc *Context) (*media.Descriptor, error) {
	client, err := netutil.NewClient(netutil.ClientOptions{
		Timeout:  m.timeout,
		ProxyURL: sc.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}

	target := fmt.Sprintf(m.endpoint, url.QueryEscape(sc.SourceURL))
	body, err := netutil.Fetch(ctx, client, target, BaseHeaders(sc.Mobile))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}

	var resp mirrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", m.name, err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s: mirror refused url: %s", m.name, resp.Msg)
	}

	mediaURL := resp.Data.Play
	if sc.AudioOnly && resp.Data.Music != "" {
		mediaURL = resp.Data.Music
	}
	if mediaURL == "" {
		return nil, media.ErrNoMediaURL
	}

	d := &media.Descriptor{
		Platform:     m.platform,
		Title:        resp.Data.Title,
		Thumbnail:    resp.Data.Cover,
		DurationSec:  resp.Data.Duration,
		MediaURL:     mediaURL,
		Uploader:     firstNonEmpty(resp.Data.Author.Nickname, resp.Data.Author.UniqueID),
		ViewCount:    resp.Data.PlayCount,
		LikeCount:    resp.Data.DiggCount,
		CommentCount: resp.Data.CommentCount,
		Method:       m.name,
	}

	if resp.Data.Play != "" {
		d.Formats = append(d.Formats, media.FormatVariant{
			ID: "play", Ext: "mp4", URL: resp.Data.Play,
			HasVideo: true, HasAudio: true, Filesize: resp.Data.Size,
		})
	}
	if resp.Data.Music != "" {
		d.Formats = append(d.Formats, media.FormatVariant{
			ID: "music", Ext: "mp3", URL: resp.Data.Music,
			HasAudio: true, Bitrate: 128,
		})
	}

	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
