package archive

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

const maxNameRunes = 100

// SafeFileName replaces characters that are unsafe in path components
// with their full-width counterparts, drops newlines, trims surrounding
// whitespace and caps the result at 100 runes. The empty result falls
// back to "untitled". The function is idempotent: full-width substitutes
// are never themselves in the unsafe set.
func SafeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch r {
		case '\n', '\r':
			// dropped
		case '\t':
			b.WriteRune(' ')
		case '/', '\\', '|', ':', '*', '?', '"', '<', '>':
			b.WriteString(width.Widen.String(string(r)))
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(out) > maxNameRunes {
		out = strings.TrimSpace(string([]rune(out)[:maxNameRunes]))
	}
	if out == "" {
		return "untitled"
	}
	return out
}

// AuthorDir builds the per-author directory name used throughout the
// export tree: sanitized display name plus the short platform handle in
// brackets.
func AuthorDir(author, handle string) string {
	if handle == "" {
		return SafeFileName(author)
	}
	return SafeFileName(author) + "[" + SafeFileName(handle) + "]"
}
