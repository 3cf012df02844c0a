package rename

import (
	"fmt"
	"strings"
)

// Default templates for the electro export tree.
const (
	DefaultFolderTemplate   = "{albumartist}/{isrc} - {album}"
	DefaultFilenameTemplate = "{tracknumber} {title}"
)

// placeholders lists the names a layout template may use.
var placeholders = map[string]bool{
	"albumartist": true,
	"artist":      true,
	"album":       true,
	"isrc":        true,
	"title":       true,
	"tracknumber": true,
	"year":        true,
	"genre":       true,
}

// Layout renders destination paths relative to an export root.
type Layout struct {
	Folder   string // Template for the album folder, "/" separates levels
	Filename string // Template for the track file name, without extension
}

// DefaultLayout returns the "<albumartist>/<isrc> - <album>/NN title" layout.
func DefaultLayout() Layout {
	return Layout{
		Folder:   DefaultFolderTemplate,
		Filename: DefaultFilenameTemplate,
	}
}

// Validate checks that both templates are set and only use known placeholders.
func (l Layout) Validate() error {
	if err := checkTemplate(l.Folder, placeholders); err != nil {
		return fmt.Errorf("folder: %w", err)
	}
	if err := checkTemplate(l.Filename, placeholders); err != nil {
		return fmt.Errorf("filename: %w", err)
	}
	return nil
}

// TrackMetadata holds the values a layout can reference.
type TrackMetadata struct {
	AlbumArtist string
	Artist      string
	Album       string
	ISRC        string
	Title       string
	TrackNumber int
	Year        string
	Genre       string
}

// AlbumDir renders the folder template and sanitizes the result.
func (l Layout) AlbumDir(m TrackMetadata) string {
	return Sanitize(render(l.Folder, m.resolve), true)
}

// FileName renders the filename template, appends ext and sanitizes the
// result.
func (l Layout) FileName(m TrackMetadata, ext string) string {
	name := render(l.Filename, m.resolve)
	// Template literals may contain "/", file names may not.
	name = strings.ReplaceAll(name, "/", "_")
	return Sanitize(name+ext, false)
}

func (m TrackMetadata) resolve(name string) (string, bool) {
	var v string
	switch name {
	case "albumartist":
		v = m.AlbumArtist
	case "artist":
		v = m.Artist
	case "album":
		v = m.Album
	case "isrc":
		v = m.ISRC
	case "title":
		v = m.Title
	case "tracknumber":
		v = fmt.Sprintf("%02d", m.TrackNumber)
	case "year":
		v = m.Year
	case "genre":
		v = m.Genre
	default:
		return "", false
	}
	return PathValue(v), true
}

// PathValue makes a tag value usable as a single path component by
// replacing "/" with "_".
func PathValue(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}
