package media

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// Fingerprint is a 128-bit identity derived from the normalized form of a
// source URL. Two requests for the same media item produce the same
// Fingerprint regardless of scheme case, host case, fragment, or query
// parameter order.
type Fingerprint [16]byte

// ZeroFingerprint is the zero-value Fingerprint.
var ZeroFingerprint Fingerprint

// FingerprintURL normalizes rawURL and hashes it with xxh3-128.
// If the URL does not parse, the raw bytes are hashed directly so the
// fingerprint stays deterministic for any input.
func FingerprintURL(rawURL string) Fingerprint {
	return hashBytes([]byte(NormalizeURL(rawURL)))
}

// NormalizeURL produces the canonical cache-key form of a URL:
// lowercased scheme and host, no fragment, query parameters sorted by key.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}

	return u.String()
}

// Hex returns the lowercase hex encoding of the fingerprint.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	return f.Hex()
}

// IsZero reports whether f is the zero fingerprint.
func (f Fingerprint) IsZero() bool {
	return f == ZeroFingerprint
}

// ParseFingerprint decodes a 32-character hex string into a Fingerprint.
func ParseFingerprint(s string) (Fingerprint, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroFingerprint, fmt.Errorf("media.ParseFingerprint: %w", err)
	}
	if len(b) != 16 {
		return ZeroFingerprint, fmt.Errorf("media.ParseFingerprint: expected 16 bytes, got %d", len(b))
	}
	var f Fingerprint
	copy(f[:], b)
	return f, nil
}

func hashBytes(data []byte) Fingerprint {
	h128 := xxh3.Hash128(data)
	var f Fingerprint
	binary.LittleEndian.PutUint64(f[:8], h128.Lo)
	binary.LittleEndian.PutUint64(f[8:], h128.Hi)
	return f
}
