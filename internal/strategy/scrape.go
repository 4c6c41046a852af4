package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/snapgrab/snapgrab/internal/media"
	"github.com/snapgrab/snapgrab/internal/netutil"
)

// Scrape fetches the page HTML and digs the media URL out of it: first
// JSON-LD VideoObject blocks, then OpenGraph video tags. It works without
// cookies for public pages; private pages surface as 401/403 upstream and
// classify accordingly.
type Scrape struct {
	name     string
	platform string
	// origin, when set, is layered into Referer/Origin headers.
	origin  string
	timeout time.Duration
}

// NewScrape builds an HTML scrape strategy for a platform.
func NewScrape(name, platform, origin string, timeout time.Duration) *Scrape {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Scrape{name: name, platform: platform, origin: origin, timeout: timeout}
}

func (s *Scrape) Name() string       { return s.name }
func (s *Scrape) RequiresAuth() bool { return false }

// videoObject is the subset of schema.org VideoObject we consume.
type videoObject struct {
	Type         string `json:"@type"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ThumbnailURL any    `json:"thumbnailUrl"` // string or []string
	ContentURL   string `json:"contentUrl"`
	EmbedURL     string `json:"embedUrl"`
	Duration     string `json:"duration"` // ISO 8601, e.g. PT1M30S
	Author       struct {
		Name string `json:"name"`
	} `json:"author"`
}

// Attempt fetches and parses the page.
func (s *Scrape) Attempt(ctx context.Context, sc *Context) (*media.Descriptor, error) {
	client, err := netutil.NewClient(netutil.ClientOptions{
		Timeout:  s.timeout,
		ProxyURL: sc.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	headers := PlatformHeaders(sc.Mobile, s.origin)
	if sc.CookieBlob != "" {
		headers["Cookie"] = sc.CookieBlob
	}

	body, err := netutil.Fetch(ctx, client, sc.SourceURL, headers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: parse html: %w", s.name, err)
	}

	d := s.fromJSONLD(doc)
	if d == nil {
		d = s.fromOpenGraph(doc)
	}
	if d == nil || d.MediaURL == "" {
		return nil, media.ErrNoMediaURL
	}

	d.Platform = s.platform
	d.Method = s.name
	if d.Title == "" {
		d.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return d, nil
}

// fromJSONLD scans application/ld+json scripts for a VideoObject with a
// contentUrl. Returns nil when no usable block is present.
func (s *Scrape) fromJSONLD(doc *goquery.Document) *media.Descriptor {
	var found *media.Descriptor
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := sel.Text()

		var objs []videoObject
		var single videoObject
		if err := json.Unmarshal([]byte(raw), &single); err == nil {
			objs = append(objs, single)
		} else if err := json.Unmarshal([]byte(raw), &objs); err != nil {
			return true
		}

		for _, obj := range objs {
			if obj.Type != "VideoObject" || obj.ContentURL == "" {
				continue
			}
			found = &media.Descriptor{
				Title:       obj.Name,
				Description: obj.Description,
				Thumbnail:   firstThumbnail(obj.ThumbnailURL),
				DurationSec: parseISODuration(obj.Duration),
				MediaURL:    obj.ContentURL,
				Uploader:    obj.Author.Name,
				Formats: []media.FormatVariant{{
					ID: "jsonld", Ext: extFromURL(obj.ContentURL),
					URL: obj.ContentURL, HasVideo: true, HasAudio: true,
				}},
			}
			return false
		}
		return true
	})
	return found
}

// fromOpenGraph falls back to og:video meta tags.
func (s *Scrape) fromOpenGraph(doc *goquery.Document) *media.Descriptor {
	meta := func(prop string) string {
		v, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, prop)).First().Attr("content")
		return v
	}

	videoURL := meta("og:video:secure_url")
	if videoURL == "" {
		videoURL = meta("og:video")
	}
	if videoURL == "" {
		videoURL = meta("og:video:url")
	}
	if videoURL == "" {
		return nil
	}

	return &media.Descriptor{
		Title:       meta("og:title"),
		Description: meta("og:description"),
		Thumbnail:   meta("og:image"),
		MediaURL:    videoURL,
		Formats: []media.FormatVariant{{
			ID: "og", Ext: extFromURL(videoURL),
			URL: videoURL, HasVideo: true, HasAudio: true,
		}},
	}
}

func firstThumbnail(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// parseISODuration handles the PT#H#M#S subset schema.org uses. Returns 0
// on anything it cannot read.
func parseISODuration(iso string) int {
	if !strings.HasPrefix(iso, "PT") {
		return 0
	}
	rest := iso[2:]
	total := 0
	num := 0
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
		case r == 'H':
			total += num * 3600
			num = 0
		case r == 'M':
			total += num * 60
			num = 0
		case r == 'S':
			total += num
			num = 0
		default:
			return 0
		}
	}
	return total
}

func extFromURL(raw string) string {
	trimmed := raw
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if i := strings.LastIndex(trimmed, "."); i >= 0 && len(trimmed)-i <= 5 {
		return trimmed[i+1:]
	}
	return "mp4"
}
