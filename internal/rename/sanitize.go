// Package rename derives destination paths for albums and tracks.
package rename

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// unsafeChars are removed or replaced in every path component. Slashes can
// appear after decomposition (fullwidth solidus) and must not split a
// component.
var unsafeChars = strings.NewReplacer(":", "_", ".", "", "/", "_", `\`, "_")

// emptyComponent replaces a component that sanitizes to nothing.
const emptyComponent = "_"

// Sanitize rewrites each component of path into a portable ASCII form:
// compatibility decomposition (NFKD), removal of the non-ASCII remainder,
// ":" replaced by "_" and "." removed. When isDir is false the last
// component keeps its extension. "." and ".." components and separators
// are left untouched, so Sanitize never changes where a relative path
// points above its own components. Sanitize is idempotent and pure.
func Sanitize(path string, isDir bool) string {
	if path == "" {
		return ""
	}
	sep := string(filepath.Separator)
	parts := strings.Split(path, sep)
	last := len(parts) - 1
	for i, part := range parts {
		switch {
		case part == "", part == ".", part == "..":
			continue
		case i == last && !isDir:
			parts[i] = sanitizeFileName(part)
		default:
			parts[i] = sanitizeComponent(part)
		}
	}
	return strings.Join(parts, sep)
}

func sanitizeFileName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	ext = unsafeChars.Replace(toASCII(strings.TrimPrefix(ext, ".")))
	if ext == "" {
		return sanitizeComponent(stem)
	}
	return sanitizeComponent(stem) + "." + ext
}

func sanitizeComponent(s string) string {
	out := unsafeChars.Replace(toASCII(s))
	if out == "" {
		return emptyComponent
	}
	return out
}

// toASCII decomposes s and drops every rune outside ASCII.
func toASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.Map(func(r rune) rune {
			if r > unicode.MaxASCII {
				return -1
			}
			return r
		}, s)
	}
	return out
}
