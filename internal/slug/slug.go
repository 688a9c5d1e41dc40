// Package slug turns arbitrary display text into filesystem-safe, stable
// identifiers. Deterministic and pure; no I/O.
package slug

import (
	"path/filepath"
	"strings"
)

const (
	AlbumFallback = "album"
	PhotoFallback = "photo"
)

// The original catalog is Turkish; these are the diacritics it transliterates.
// İ and I map explicitly because strings.ToLower does not fold them to a bare
// ASCII "i".
var transliterations = map[rune]rune{
	'ç': 'c', 'ğ': 'g', 'ı': 'i', 'ö': 'o', 'ş': 's', 'ü': 'u',
	'Ç': 'c', 'Ğ': 'g', 'I': 'i', 'İ': 'i', 'Ö': 'o', 'Ş': 's', 'Ü': 'u',
}

// Make normalizes text to a token matching [a-z0-9-]+ with no leading,
// trailing or duplicate hyphens. An empty result collapses to fallback.
func Make(text, fallback string) string {
	var transliterated strings.Builder
	for _, r := range text {
		if repl, ok := transliterations[r]; ok {
			transliterated.WriteRune(repl)
		} else {
			transliterated.WriteRune(r)
		}
	}

	lowered := strings.ToLower(strings.TrimSpace(transliterated.String()))

	out := make([]rune, 0, len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}

	collapsed := collapseHyphens(string(out))
	trimmed := strings.Trim(collapsed, "-")
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

// SanitizeFilename normalizes the base name of an uploaded file and
// reattaches the lowercased extension.
func SanitizeFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	safe := Make(base, PhotoFallback)
	if ext == "" {
		return safe
	}
	return safe + strings.ToLower(ext)
}

func collapseHyphens(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prevHyphen bool
	for _, r := range s {
		if r == '-' {
			if prevHyphen {
				continue
			}
			prevHyphen = true
		} else {
			prevHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
