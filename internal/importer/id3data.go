package importer

import (
	"path/filepath"
	"strings"

	"github.com/llehouerou/crate/internal/catalog"
	"github.com/llehouerou/crate/internal/tags"
)

// UnresolvedISRC is the album prefix used until a catalog identifier is
// known. Albums carrying it are routed to the todo tree.
const UnresolvedISRC = "TODO"

// ID3Data is the album-level metadata written back to every track.
type ID3Data struct {
	Album       string
	Genre       string
	AlbumArtist string
	Label       string
	ISRC        string
}

// Resolved reports whether a catalog identifier was found.
func (d ID3Data) Resolved() bool {
	return d.ISRC != "" && d.ISRC != UnresolvedISRC
}

// PrefixedAlbum returns the album title with the identifier prefix.
func (d ID3Data) PrefixedAlbum() string {
	return d.ISRC + " - " + d.Album
}

// WithMatch returns a copy of d updated from a catalog match. The local
// genre is kept when the match has none.
func (d ID3Data) WithMatch(m *catalog.Match) ID3Data {
	d.ISRC = m.ISRC
	if m.Genre != "" {
		d.Genre = m.Genre
	}
	return d
}

// compileID3Data aggregates the album metadata of a validated album.
func compileID3Data(a *Album) (ID3Data, error) {
	genres := make([]string, 0, len(a.Tracks))
	for _, t := range a.Tracks {
		genres = append(genres, joinedGenre(t.Tags))
	}

	albumArtist, err := compileAlbumArtist(a.Tracks)
	if err != nil {
		return ID3Data{}, err
	}

	return ID3Data{
		Album:       a.Title,
		Genre:       catalog.Genre(genres),
		AlbumArtist: albumArtist,
		Label:       a.Label,
		ISRC:        UnresolvedISRC,
	}, nil
}

// compileAlbumArtist returns the album artist, or catalog.VariousArtists
// when the tracks credit more than one artist. Artists come from the artist
// tags, split on ", ", or from the album artist tags when a track has no
// artist.
func compileAlbumArtist(tracks []Track) (string, error) {
	artists, ok := splitOnAll(tracks, tags.FieldArtist)
	if !ok {
		artists, ok = splitOnAll(tracks, tags.FieldAlbumArtist)
	}
	if !ok {
		return "", reject(RejectUnresolvedArtist, "no artist or album artist tag on all tracks")
	}

	distinct := make(map[string]struct{}, len(artists))
	for _, a := range artists {
		distinct[a] = struct{}{}
	}
	if len(distinct) != 1 {
		return catalog.VariousArtists, nil
	}

	first := tracks[0].Tags
	if v, err := first.First(tags.FieldAlbumArtist); err == nil && v != "" {
		return v, nil
	}
	return first.First(tags.FieldArtist)
}

func splitOnAll(tracks []Track, field string) ([]string, bool) {
	values, ok := fieldOnAll(tracks, field)
	if !ok {
		return nil, false
	}
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ", ")...)
	}
	return out, true
}

// query builds the catalog query for an album.
func query(a *Album, d ID3Data) catalog.Query {
	first := a.Tracks[0].Tags
	artist, _ := first.First(tags.FieldArtist)
	date, _ := first.First(tags.FieldYear)
	return catalog.Query{
		Album:       d.Album,
		AlbumArtist: d.AlbumArtist,
		FirstArtist: artist,
		Date:        date,
	}
}

// trackTitle returns the title tag, or the file name without extension.
func trackTitle(t Track) string {
	if v, err := t.Tags.First(tags.FieldTitle); err == nil && v != "" {
		return v
	}
	base := filepath.Base(t.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
