package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/llehouerou/crate/internal/export"
	"github.com/llehouerou/crate/internal/logging"
	"github.com/llehouerou/crate/internal/tags"
)

const (
	// tempExt marks a file the download client is still writing.
	tempExt = ".temp"
	// errorsFile is written by the download client when a transfer failed.
	errorsFile = "errors.txt"
)

// DefaultElectroGenres are the genre keywords that keep an album in the
// electro pipeline.
var DefaultElectroGenres = []string{"TECHNO", "HOUSE", "ELECTRO", "DANCE"}

// Track is one audio file of an album with its open tag set.
type Track struct {
	Path string
	Tags tags.File
}

// Album is an album directory that passed validation.
type Album struct {
	Dir    string
	Artist string // artist directory name
	Name   string // album directory name
	Tracks []Track
	// Title and Label are the values all tracks agree on.
	Title string
	Label string
}

// Validator decides whether an album directory is ready for import.
type Validator struct {
	// GeneralRoot receives albums outside the electro genres.
	GeneralRoot   string
	ElectroGenres []string
	logger        *slog.Logger
}

// NewValidator creates a Validator moving non-electro albums to generalRoot.
func NewValidator(generalRoot string, logger *slog.Logger) *Validator {
	return &Validator{
		GeneralRoot:   generalRoot,
		ElectroGenres: DefaultElectroGenres,
		logger:        logging.NewComponentLogger(logger, "validator"),
	}
}

// Validate runs the album checks in order and stops at the first failure,
// which is returned as a *Rejection. Only the genre check touches the
// filesystem: a non-electro album is moved whole to the general tree
// before RejectGeneral is returned. Other errors are I/O failures.
func (v *Validator) Validate(ctx context.Context, dir string) (*Album, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read album directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	if slices.ContainsFunc(files, func(f string) bool { return filepath.Ext(f) == tempExt }) {
		return nil, reject(RejectIncomplete, "album not finished downloading")
	}

	if slices.Contains(files, filepath.Join(dir, errorsFile)) {
		data, err := os.ReadFile(filepath.Join(dir, errorsFile))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", errorsFile, err)
		}
		reason := strings.TrimSpace(string(data))
		if reason == "" {
			reason = errorsFile + " present"
		}
		return nil, reject(RejectUpstream, "%s", reason)
	}

	album := &Album{
		Dir:    dir,
		Artist: filepath.Base(filepath.Dir(dir)),
		Name:   filepath.Base(dir),
	}
	for _, f := range files {
		if !tags.IsAudioFile(f) {
			continue
		}
		tf, err := tags.Open(f)
		if err != nil {
			return nil, rejectErr(RejectMalformed, err, "cannot read tags of %s", filepath.Base(f))
		}
		album.Tracks = append(album.Tracks, Track{Path: f, Tags: tf})
	}
	if len(album.Tracks) == 0 {
		return nil, reject(RejectEmpty, "no audio files in album")
	}

	if err := checkTrackNumbers(album.Tracks); err != nil {
		return nil, err
	}

	if !v.hasElectroGenre(album.Tracks) {
		dest, err := v.moveToGeneral(ctx, album, files)
		if err != nil {
			return nil, err
		}
		return nil, reject(RejectGeneral, "%s", dest)
	}

	if album.Title, err = agreeingAlbum(album.Tracks); err != nil {
		return nil, err
	}
	if album.Label, err = resolveLabel(album.Tracks); err != nil {
		return nil, err
	}
	return album, nil
}

func checkTrackNumbers(tracks []Track) error {
	highest := 0
	for _, t := range tracks {
		raw, err := t.Tags.First(tags.FieldTrackNumber)
		if err != nil {
			return rejectErr(RejectMalformed, err, "%s has no track number", filepath.Base(t.Path))
		}
		n, ok := tags.ParseTrackNumber(raw)
		if !ok {
			return reject(RejectMalformed, "%s has track number %q", filepath.Base(t.Path), raw)
		}
		highest = max(highest, n)
	}
	if highest != len(tracks) {
		return reject(RejectMissingTracks, "%d files for %d tracks", len(tracks), highest)
	}
	return nil
}

// hasElectroGenre reports whether any track's genre contains one of the
// electro keywords, ignoring case.
func (v *Validator) hasElectroGenre(tracks []Track) bool {
	for _, t := range tracks {
		genre := strings.ToUpper(joinedGenre(t.Tags))
		for _, kw := range v.ElectroGenres {
			if strings.Contains(genre, strings.ToUpper(kw)) {
				return true
			}
		}
	}
	return false
}

// joinedGenre returns all genre values of a file joined by a space.
func joinedGenre(f tags.File) string {
	values, err := f.Get(tags.FieldGenre)
	if err != nil {
		return ""
	}
	return strings.Join(values, " ")
}

// moveToGeneral moves every file of the album to
// <general>/<artist>/<album> and removes the album directory.
func (v *Validator) moveToGeneral(ctx context.Context, album *Album, files []string) (string, error) {
	exp, err := export.NewExporter(v.GeneralRoot, filepath.Join(album.Artist, album.Name))
	if err != nil {
		return "", fmt.Errorf("prepare general export: %w", err)
	}
	for _, f := range files {
		if _, err := exp.Export(ctx, f); err != nil {
			return "", fmt.Errorf("move to general: %w", err)
		}
	}
	if !export.SafeDelete(album.Dir) {
		v.logger.Warn("album directory not removed after general move",
			slog.String(logging.FieldPath, album.Dir))
	}
	return exp.Dir(), nil
}

func agreeingAlbum(tracks []Track) (string, error) {
	var title string
	for i, t := range tracks {
		v, err := t.Tags.First(tags.FieldAlbum)
		if err != nil || v == "" {
			return "", reject(RejectInconsistent, "%s has no album tag", filepath.Base(t.Path))
		}
		if i == 0 {
			title = v
			continue
		}
		if v != title {
			return "", reject(RejectInconsistent, "album tags differ: %q and %q", title, v)
		}
	}
	return title, nil
}

// labelFields are tried in order; the first field present on every track
// provides the label.
var labelFields = []string{
	tags.FieldOrganization,
	tags.FieldLabel,
	tags.FieldPublisher,
	tags.FieldComposer,
}

func resolveLabel(tracks []Track) (string, error) {
	for _, field := range labelFields {
		values, ok := fieldOnAll(tracks, field)
		if !ok {
			continue
		}
		for _, v := range values[1:] {
			if v != values[0] {
				return "", reject(RejectInconsistent, "%s tags differ: %q and %q", field, values[0], v)
			}
		}
		return values[0], nil
	}
	return "", reject(RejectUnresolvedLabel, "no organization, label, publisher or composer tag on all tracks")
}

// fieldOnAll returns the first value of field for every track, or false if
// a track lacks it.
func fieldOnAll(tracks []Track, field string) ([]string, bool) {
	values := make([]string, 0, len(tracks))
	for _, t := range tracks {
		v, err := t.Tags.First(field)
		if err != nil || v == "" {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}
