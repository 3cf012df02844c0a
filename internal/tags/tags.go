// Package tags provides uniform key/value access to audio file metadata.
// FLAC Vorbis comments and MP3 ID3v2 frames are exposed through the same
// File contract; per-format differences live in schema tables.
package tags

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// File extensions supported by the tags package.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
)

// id3Magic is the magic bytes for ID3v2 header detection.
const id3Magic = "ID3"

// Canonical field names. They follow the lowercase names used by most
// taggers so FLAC and MP3 files can be addressed the same way.
const (
	FieldTitle        = "title"
	FieldArtist       = "artist"
	FieldAlbum        = "album"
	FieldAlbumArtist  = "albumartist"
	FieldGenre        = "genre"
	FieldDate         = "date"
	FieldYear         = "year"
	FieldTrackNumber  = "tracknumber"
	FieldDiscNumber   = "discnumber"
	FieldOrganization = "organization"
	FieldLabel        = "label"
	FieldPublisher    = "publisher"
	FieldComposer     = "composer"
	FieldISRC         = "isrc"
)

var (
	// ErrFieldMissing is returned when a field has no value in the file.
	ErrFieldMissing = errors.New("field missing")
	// ErrUnsupportedField is returned when neither the field nor its alias
	// exists in the container's schema.
	ErrUnsupportedField = errors.New("field not supported by container")
	// ErrUnsupportedFormat is returned for files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Kind identifies the tag container of a file.
type Kind int

const (
	KindUnknown Kind = iota
	KindFLAC
	KindID3
)

func (k Kind) String() string {
	switch k {
	case KindFLAC:
		return "flac"
	case KindID3:
		return "id3"
	default:
		return "unknown"
	}
}

// KindOf returns the container kind for a path, based on its extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtFLAC:
		return KindFLAC
	case ExtMP3:
		return KindID3
	default:
		return KindUnknown
	}
}

// IsAudioFile returns true if the path has a supported audio extension.
func IsAudioFile(path string) bool {
	return KindOf(path) != KindUnknown
}

// File is an open tag set for one audio file. Changes made with Set are
// held in memory until Save is called.
type File interface {
	Path() string
	Kind() Kind
	// Fields returns a copy of all fields present in the file.
	Fields() map[string][]string
	// Get returns the values of a field, resolving the container's alias
	// when the field itself is absent. Returns ErrFieldMissing if empty.
	Get(field string) ([]string, error)
	// First returns the first value of a field.
	First(field string) (string, error)
	// Set replaces the values of a field. Fields the container cannot store
	// are written to their alias; ErrUnsupportedField otherwise.
	Set(field string, values ...string) error
	Save() error
}

// Open reads the tags of an audio file. The container is chosen by extension.
func Open(path string) (File, error) {
	switch KindOf(path) {
	case KindFLAC:
		return openFLAC(path)
	case KindID3:
		return openID3(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// fieldSet holds the in-memory values shared by both container variants.
type fieldSet struct {
	path   string
	schema *schema
	values map[string][]string
	order  []string
	dirty  map[string]bool
}

func newFieldSet(path string, s *schema) fieldSet {
	return fieldSet{
		path:   path,
		schema: s,
		values: make(map[string][]string),
		dirty:  make(map[string]bool),
	}
}

func (fs *fieldSet) Path() string { return fs.path }

func (fs *fieldSet) Kind() Kind { return fs.schema.kind }

func (fs *fieldSet) Fields() map[string][]string {
	out := make(map[string][]string, len(fs.values))
	for k, v := range fs.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (fs *fieldSet) Get(field string) ([]string, error) {
	field = strings.ToLower(field)
	if v, ok := fs.values[field]; ok && len(v) > 0 {
		return append([]string(nil), v...), nil
	}
	if alias, ok := fs.schema.aliases[field]; ok {
		if v, ok := fs.values[alias]; ok && len(v) > 0 {
			return append([]string(nil), v...), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", field, ErrFieldMissing)
}

func (fs *fieldSet) First(field string) (string, error) {
	v, err := fs.Get(field)
	if err != nil {
		return "", err
	}
	return v[0], nil
}

func (fs *fieldSet) Set(field string, values ...string) error {
	key, err := fs.schema.resolve(field)
	if err != nil {
		return err
	}
	if _, ok := fs.values[key]; !ok {
		fs.order = append(fs.order, key)
	}
	fs.values[key] = append([]string(nil), values...)
	fs.dirty[key] = true
	return nil
}

// load records a value read from the file without marking it dirty.
func (fs *fieldSet) load(field, value string) {
	field = strings.ToLower(field)
	if _, ok := fs.values[field]; !ok {
		fs.order = append(fs.order, field)
	}
	fs.values[field] = append(fs.values[field], value)
}
