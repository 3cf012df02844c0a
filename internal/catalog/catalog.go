// Package catalog looks up album releases on a Beatport-style search page
// and derives a catalog identifier and genre from the best-scoring hit.
package catalog

import (
	"errors"
	"regexp"
	"slices"
)

// ErrNoMatch is returned when the catalog has no usable candidate for a
// query. Transport and parse failures are reported as ErrNoMatch too.
var ErrNoMatch = errors.New("no catalog match")

// VariousArtists is the album artist used for multi-artist albums.
const VariousArtists = "Various Artists"

// DefaultMinScore is the score a candidate must exceed to be accepted.
const DefaultMinScore = 1000

// formatSuffixes are catalog number tails that only name the release format.
var formatSuffixes = []string{"DIG", "CD", "DIGITAL"}

// Candidate is one track or release entry from a search response.
type Candidate struct {
	Name          string
	Artists       []string
	Label         string
	CatalogNumber string
	Genres        []string
	Score         float64
}

// Match is the accepted candidate with its derived identifier and genre.
type Match struct {
	Candidate Candidate
	// ISRC is the catalog identifier used as album prefix.
	ISRC string
	// Genre is empty when the candidate lists no genre.
	Genre string
}

// Best returns the first candidate with the highest score.
func Best(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}

var digitRun = regexp.MustCompile(`\d+`)

// splitRuns splits s into alternating non-digit and digit runs. The result
// always starts and ends with a non-digit run, which may be empty.
func splitRuns(s string) []string {
	var parts []string
	prev := 0
	for _, loc := range digitRun.FindAllStringIndex(s, -1) {
		parts = append(parts, s[prev:loc[0]], s[loc[0]:loc[1]])
		prev = loc[1]
	}
	return append(parts, s[prev:])
}

// CatalogID derives the album identifier from a catalog number: the first
// three runs of "REL2024DIG" are "REL", "2024" and "DIG", and a format
// suffix in third place is dropped, giving "REL2024". Catalog numbers
// without a digit run are returned unchanged.
func CatalogID(catalogNumber string) string {
	runs := splitRuns(catalogNumber)
	if len(runs) < 3 {
		return catalogNumber
	}
	runs = runs[:3]
	if slices.Contains(formatSuffixes, runs[2]) {
		runs[2] = ""
	}
	return runs[0] + runs[1] + runs[2]
}

// Genre returns the most frequent genre, preferring the one seen first on
// ties. Returns "" for an empty list.
func Genre(genres []string) string {
	counts := make(map[string]int, len(genres))
	for _, g := range genres {
		counts[g]++
	}
	var best string
	bestCount := 0
	for _, g := range genres {
		if counts[g] > bestCount {
			best, bestCount = g, counts[g]
		}
	}
	return best
}
