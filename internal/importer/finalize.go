package importer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/llehouerou/crate/internal/tags"
)

// MixKeywords mark a title as something other than the original mix.
var MixKeywords = []string{"MIX", "REMIX", "EDIT", "REWORK", "BOOTLEG", "VERSION", "DUB", "ENACTMENT"}

const originalMix = " (Original Mix)"

// FixTitle normalizes a track title: " (Original Mix)" is appended when no
// mix keyword appears in it, the last word is capitalized (first letter
// upper case, the rest lower case) and a trailing "]" becomes ")".
func FixTitle(title string) string {
	upper := strings.ToUpper(title)
	hasMix := false
	for _, kw := range MixKeywords {
		if strings.Contains(upper, kw) {
			hasMix = true
			break
		}
	}
	if !hasMix {
		title += originalMix
	}

	words := strings.Split(title, " ")
	words[len(words)-1] = capitalize(words[len(words)-1])
	title = strings.Join(words, " ")

	if strings.HasSuffix(title, "]") {
		title = strings.TrimSuffix(title, "]") + ")"
	}
	return title
}

// capitalize upper-cases the first rune of s and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToTitle(r)) + strings.ToLower(s[size:])
}

// finalizeTrack writes the album metadata and the normalized title to a
// track and saves it.
func finalizeTrack(t Track, d ID3Data) error {
	values := []struct {
		field string
		value string
	}{
		{tags.FieldISRC, d.ISRC},
		{tags.FieldAlbumArtist, d.AlbumArtist},
		{tags.FieldAlbum, d.PrefixedAlbum()},
		{tags.FieldGenre, strings.ReplaceAll(d.Genre, "/", "-")},
		{tags.FieldLabel, d.Label},
		{tags.FieldTitle, FixTitle(trackTitle(t))},
	}
	for _, v := range values {
		if err := t.Tags.Set(v.field, v.value); err != nil {
			return fmt.Errorf("set %s: %w", v.field, err)
		}
	}
	if err := t.Tags.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	return nil
}
