package archive

import (
	"regexp"
	"strings"
)

// thumbnailTokenRe matches the short pixel-dimension codes lofter embeds
// in thumbnail URLs (64x64, 46y46 and friends).
var thumbnailTokenRe = regexp.MustCompile(`[1649]{2}[xy][1649]{2}`)

// FilterImageURLs applies the shared image URL policy: URLs carrying an
// HTML-entity-escaped ampersand or a thumbnail size token are dropped,
// trailing imageView transform suffixes are stripped, and duplicates are
// removed while preserving first-seen order.
func FilterImageURLs(urls []string) []string {
	var out []string
	seen := make(map[string]bool, len(urls))

	for _, u := range urls {
		if strings.Contains(u, "&amp;") {
			continue
		}
		if thumbnailTokenRe.MatchString(u) {
			continue
		}
		u, _, _ = strings.Cut(u, "imageView")
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// ImageExt infers the image file extension from the URL, preferring gif
// over png, defaulting to jpg.
func ImageExt(url string) string {
	switch {
	case strings.Contains(url, "gif"):
		return "gif"
	case strings.Contains(url, "png"):
		return "png"
	default:
		return "jpg"
	}
}
