package tags

import (
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"
)

// Tag is a read-only summary of the fields needed to place a track.
// Empty strings and zero numbers mean the field is absent.
type Tag struct {
	Path        string
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genre       string
	TrackNumber int
	TotalTracks int
	Year        int
}

// Read reads a tag summary from a music file. Unlike Open it does not keep
// per-container state, which makes it suitable for bulk scans.
func Read(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// dhowden/tag fails on some files taglib can still read
		return readWithTaglib(path)
	}

	track, total := m.Track()
	return &Tag{
		Path:        path,
		Title:       m.Title(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Album:       m.Album(),
		Genre:       m.Genre(),
		TrackNumber: track,
		TotalTracks: total,
		Year:        m.Year(),
	}, nil
}

// readWithTaglib reads a tag summary using TagLib.
func readWithTaglib(path string) (*Tag, error) {
	rawTags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	tags := taglibTags(rawTags)

	track, total := parseNumberPair(tags.get(taglib.TrackNumber))
	year, _ := strconv.Atoi(YearOf(tags.get("DATE", "YEAR")))
	return &Tag{
		Path:        path,
		Title:       tags.get(taglib.Title),
		Artist:      tags.get(taglib.Artist),
		AlbumArtist: tags.get(taglib.AlbumArtist),
		Album:       tags.get(taglib.Album),
		Genre:       tags.get(taglib.Genre),
		TrackNumber: track,
		TotalTracks: total,
		Year:        year,
	}, nil
}

// taglibTags wraps a taglib result map with helper methods.
type taglibTags map[string][]string

// get returns the first value for any of the given keys, or empty string if not found.
func (t taglibTags) get(keys ...string) string {
	for _, key := range keys {
		if values, ok := t[key]; ok && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// ParseTrackNumber parses a track number that may be "N" or "N/M".
// ok is false when the number part is not an integer.
func ParseTrackNumber(s string) (num int, ok bool) {
	n, _, _ := strings.Cut(strings.TrimSpace(s), "/")
	num, err := strconv.Atoi(strings.TrimSpace(n))
	return num, err == nil
}

// parseNumberPair parses a track/disc number that may be "N" or "N/M" format.
func parseNumberPair(s string) (num, total int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	if idx := strings.Index(s, "/"); idx > 0 {
		num, _ = strconv.Atoi(strings.TrimSpace(s[:idx]))
		total, _ = strconv.Atoi(strings.TrimSpace(s[idx+1:]))
		return num, total
	}
	num, _ = strconv.Atoi(s)
	return num, 0
}

// YearOf returns the year part of a date like "2024-05-01".
func YearOf(date string) string {
	year, _, _ := strings.Cut(strings.TrimSpace(date), "-")
	return year
}
