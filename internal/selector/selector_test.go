package selector

import (
	"testing"

	"github.com/snapgrab/snapgrab/internal/media"
	"github.com/snapgrab/snapgrab/internal/strategy"
)

func muxed(id string, height, bitrate int, ext string) media.FormatVariant {
	return media.FormatVariant{
		ID: id, Ext: ext, URL: "https://cdn.example.com/" + id,
		HasVideo: true, HasAudio: true, Height: height, Bitrate: bitrate,
	}
}

func audio(id string, bitrate int) media.FormatVariant {
	return media.FormatVariant{
		ID: id, Ext: "m4a", URL: "https://cdn.example.com/" + id,
		HasAudio: true, Bitrate: bitrate,
	}
}

func videoOnly(id string, height int) media.FormatVariant {
	return media.FormatVariant{
		ID: id, Ext: "mp4", URL: "https://cdn.example.com/" + id,
		HasVideo: true, Height: height,
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in     string
		height int
		best   bool
	}{
		{"", 720, false},
		{"720p", 720, false},
		{"1080", 1080, false},
		{"480P", 480, false},
		{"best", 0, true},
		{"4k", 2160, false},
		{"garbage", 720, false},
		{"-1", 720, false},
	}
	for _, tt := range tests {
		h, b := ParseQuality(tt.in)
		if h != tt.height || b != tt.best {
			t.Fatalf("ParseQuality(%q) = (%d, %v), want (%d, %v)", tt.in, h, b, tt.height, tt.best)
		}
	}
}

func TestSelectNoFormatsKeepsCanonical(t *testing.T) {
	d := &media.Descriptor{MediaURL: "https://cdn.example.com/only.mp4"}
	f, err := Select(d, Request{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f != nil {
		t.Fatal("no format list should select nothing and keep the canonical URL")
	}
}

func TestSelectVideoUnderTarget(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("v360", 360, 800, "mp4"),
		muxed("v720", 720, 2500, "mp4"),
		muxed("v1080", 1080, 5000, "mp4"),
	}}
	f, err := Select(d, Request{Quality: "720p"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "v720" {
		t.Fatalf("selected %q, want v720", f.ID)
	}
}

func TestSelectVideoClosestAbove(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("v1080", 1080, 5000, "mp4"),
		muxed("v1440", 1440, 8000, "mp4"),
	}}
	f, err := Select(d, Request{Quality: "480p"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "v1080" {
		t.Fatalf("selected %q, want closest-above v1080", f.ID)
	}
}

func TestSelectVideoBitrateTiebreak(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("lo", 720, 1500, "mp4"),
		muxed("hi", 720, 3000, "mp4"),
	}}
	f, err := Select(d, Request{Quality: "720p"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "hi" {
		t.Fatalf("selected %q, want higher-bitrate hi", f.ID)
	}
}

func TestSelectVideoContainerTiebreak(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("w", 720, 2500, "webm"),
		muxed("m", 720, 2500, "mp4"),
	}}
	f, err := Select(d, Request{Quality: "720p"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "m" {
		t.Fatalf("selected %q, want mp4 on full tie", f.ID)
	}
}

func TestSelectVideoFullTieKeepsFirst(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("first", 720, 2500, "mp4"),
		muxed("second", 720, 2500, "mp4"),
	}}
	f, err := Select(d, Request{Quality: "720p"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "first" {
		t.Fatalf("selected %q, want list order to break full ties", f.ID)
	}
}

func TestSelectVideoBest(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("v720", 720, 2500, "mp4"),
		muxed("v2160", 2160, 12000, "mp4"),
	}}
	f, err := Select(d, Request{Quality: "best"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "v2160" {
		t.Fatalf("selected %q, want v2160", f.ID)
	}
}

func TestSelectVideoDefaultTarget(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("v480", 480, 1000, "mp4"),
		muxed("v720", 720, 2500, "mp4"),
		muxed("v1080", 1080, 5000, "mp4"),
	}}
	f, err := Select(d, Request{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "v720" {
		t.Fatalf("selected %q, want default 720 target", f.ID)
	}
}

func TestSelectVideoIgnoresUnmuxed(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		videoOnly("vo1080", 1080),
		muxed("v480", 480, 1000, "mp4"),
	}}
	f, err := Select(d, Request{Quality: "1080p"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "v480" {
		t.Fatalf("selected %q, want muxed v480 over taller video-only", f.ID)
	}
}

func TestSelectVideoNoneEligible(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		videoOnly("vo720", 720),
		audio("a128", 128),
	}}
	_, err := Select(d, Request{Quality: "720p"})
	if err == nil {
		t.Fatal("expected no-eligible-format error")
	}
	if got := strategy.Kind(err); got != strategy.KindNoEligibleFormat {
		t.Fatalf("Kind = %q, want %q", got, strategy.KindNoEligibleFormat)
	}
}

func TestSelectAudioPrefersPureTrack(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("v720", 720, 2500, "mp4"),
		audio("a64", 64),
		audio("a256", 256),
	}}
	f, err := Select(d, Request{AudioOnly: true})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "a256" {
		t.Fatalf("selected %q, want max-bitrate pure audio", f.ID)
	}
}

func TestSelectAudioFallsBackToMuxed(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("v720", 720, 2500, "mp4"),
	}}
	f, err := Select(d, Request{AudioOnly: true})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if f.ID != "v720" {
		t.Fatalf("selected %q, want muxed fallback", f.ID)
	}
}

func TestSelectAudioNoneEligible(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		videoOnly("vo720", 720),
	}}
	_, err := Select(d, Request{AudioOnly: true})
	if got := strategy.Kind(err); got != strategy.KindNoEligibleFormat {
		t.Fatalf("Kind = %q, want %q", got, strategy.KindNoEligibleFormat)
	}
}

func TestSelectDeterministic(t *testing.T) {
	d := &media.Descriptor{Formats: []media.FormatVariant{
		muxed("a", 480, 900, "webm"),
		muxed("b", 720, 2500, "mp4"),
		muxed("c", 720, 2500, "webm"),
		muxed("d", 1080, 5000, "mp4"),
	}}
	first, err := Select(d, Request{Quality: "720p"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for i := 0; i < 20; i++ {
		f, err := Select(d, Request{Quality: "720p"})
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if f.ID != first.ID {
			t.Fatalf("selection flapped: %q vs %q", f.ID, first.ID)
		}
	}
}
