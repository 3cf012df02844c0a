// Package importer validates downloaded albums, enriches their tags from
// the release catalog and moves them into the export or todo trees.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/llehouerou/crate/internal/catalog"
	"github.com/llehouerou/crate/internal/errmsg"
	"github.com/llehouerou/crate/internal/export"
	"github.com/llehouerou/crate/internal/logging"
	"github.com/llehouerou/crate/internal/rename"
	"github.com/llehouerou/crate/internal/tags"
)

// ErrRootUnavailable is returned when a configured root cannot be used.
// It ends the run.
var ErrRootUnavailable = errors.New("root directory unavailable")

// Matcher resolves albums against the release catalog.
type Matcher interface {
	Resolve(ctx context.Context, q catalog.Query) (*catalog.Match, error)
}

// Config holds the directory roots and the destination layout.
type Config struct {
	ImportRoot  string
	TodoRoot    string
	ElectroRoot string
	GeneralRoot string
	Layout      rename.Layout
}

// Importer runs the import pipeline. It keeps no state between runs.
type Importer struct {
	cfg       Config
	matcher   Matcher
	validator *Validator
	logger    *slog.Logger
}

// New creates an Importer. A zero Layout uses rename.DefaultLayout.
func New(cfg Config, matcher Matcher, logger *slog.Logger) *Importer {
	if cfg.Layout.Folder == "" {
		cfg.Layout = rename.DefaultLayout()
	}
	return &Importer{
		cfg:       cfg,
		matcher:   matcher,
		validator: NewValidator(cfg.GeneralRoot, logger),
		logger:    logging.NewComponentLogger(logger, "importer"),
	}
}

// RunOnce imports every album directory found under the import root, two
// levels deep (artist/album). Album and artist failures are logged and
// recorded in the summary; the returned error is set only for failures
// that make continuing pointless: an unusable root, a full or read-only
// filesystem, or cancellation of ctx.
func (im *Importer) RunOnce(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := im.prepareRoots(); err != nil {
		return sum, err
	}

	artists, err := listDirs(im.cfg.ImportRoot)
	if err != nil {
		return sum, fmt.Errorf("%w: %w", ErrRootUnavailable, err)
	}

	for _, artistDir := range artists {
		results, err := im.importArtist(ctx, artistDir)
		sum.Results = append(sum.Results, results...)
		if err == nil {
			continue
		}
		if isFatal(ctx, err) {
			return sum, err
		}
		im.logger.Error(errmsg.OpArtistImport.Failed(),
			slog.String(logging.FieldArtist, filepath.Base(artistDir)),
			logging.Error(err))
	}
	return sum, nil
}

// prepareRoots checks the import root and creates the destination roots.
func (im *Importer) prepareRoots() error {
	info, err := os.Stat(im.cfg.ImportRoot)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRootUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRootUnavailable, im.cfg.ImportRoot)
	}
	for _, root := range []string{im.cfg.TodoRoot, im.cfg.ElectroRoot, im.cfg.GeneralRoot} {
		if err := os.MkdirAll(root, export.DirMode); err != nil {
			return fmt.Errorf("%w: %w", ErrRootUnavailable, err)
		}
	}
	return nil
}

func (im *Importer) importArtist(ctx context.Context, artistDir string) ([]Result, error) {
	artist := filepath.Base(artistDir)
	albums, err := listDirs(artistDir)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}

	im.logger.Info("importing artist", slog.String(logging.FieldArtist, artist),
		slog.Int("albums", len(albums)))

	results := make([]Result, 0, len(albums))
	for _, albumDir := range albums {
		res, err := im.importAlbum(ctx, albumDir)
		if err != nil && isFatal(ctx, err) {
			return results, err
		}
		results = append(results, res)
	}

	if !export.SafeDelete(artistDir) {
		im.logger.Debug("artist directory kept", slog.String(logging.FieldPath, artistDir))
	}
	return results, nil
}

// importAlbum runs one album through the pipeline. Non-fatal failures are
// logged and reported in the Result; the error is returned for the caller
// to decide whether it is fatal.
func (im *Importer) importAlbum(ctx context.Context, dir string) (Result, error) {
	res := Result{
		Artist: filepath.Base(filepath.Dir(dir)),
		Album:  filepath.Base(dir),
	}
	logger := im.logger.With(logging.Album(res.Artist, res.Album))
	logger.Info("checking album")

	err := im.processAlbum(ctx, dir, &res, logger)
	if err == nil {
		logger.Info("album imported",
			slog.String("outcome", res.Outcome.String()),
			slog.String("destination", res.Destination),
			slog.Int("files", res.Files))
		return res, nil
	}

	if rej, ok := AsRejection(err); ok {
		res.Outcome = OutcomeRejected
		res.Reason = rej.Error()
		if rej.Kind == RejectGeneral {
			res.Outcome = OutcomeGeneral
			res.Destination = rej.Reason
		}
		logRejection(logger, rej)
		return res, nil
	}

	res.Outcome = OutcomeFailed
	res.Reason = err.Error()
	logger.Error(errmsg.OpAlbumImport.Failed(), logging.Error(err))
	return res, err
}

func (im *Importer) processAlbum(ctx context.Context, dir string, res *Result, logger *slog.Logger) error {
	album, err := im.validator.Validate(ctx, dir)
	if err != nil {
		return err
	}

	data, err := compileID3Data(album)
	if err != nil {
		return err
	}

	match, err := im.matcher.Resolve(ctx, query(album, data))
	switch {
	case err == nil:
		data = data.WithMatch(match)
		logger.Info("catalog match", slog.String("isrc", data.ISRC),
			slog.Float64("score", match.Candidate.Score))
	case errors.Is(err, catalog.ErrNoMatch):
		logger.Info("no catalog match, album goes to todo", logging.Error(err))
	default:
		return fmt.Errorf("%s: %w", errmsg.OpCatalogQuery, err)
	}

	root, outcome := im.cfg.TodoRoot, OutcomePending
	if data.Resolved() {
		root, outcome = im.cfg.ElectroRoot, OutcomeImported
	}
	meta := layoutMetadata(album, data)
	exp, err := export.NewExporter(root, im.cfg.Layout.AlbumDir(meta))
	if err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}
	res.Destination = exp.Dir()

	for _, t := range album.Tracks {
		if err := finalizeTrack(t, data); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(t.Path), err)
		}
		name := im.cfg.Layout.FileName(trackLayout(meta, t), filepath.Ext(t.Path))
		if _, err := exp.ExportAs(ctx, t.Path, name); err != nil {
			return err
		}
		res.Files = exp.Files()
		res.Bytes = exp.Bytes()
	}
	res.Outcome = outcome

	if !export.SafeDelete(dir) {
		logger.Warn("album directory not removed", slog.String(logging.FieldPath, dir))
	}
	return nil
}

func layoutMetadata(a *Album, d ID3Data) rename.TrackMetadata {
	first := a.Tracks[0].Tags
	artist, _ := first.First(tags.FieldArtist)
	date, _ := first.First(tags.FieldYear)
	return rename.TrackMetadata{
		AlbumArtist: d.AlbumArtist,
		Artist:      artist,
		Album:       d.Album,
		ISRC:        d.ISRC,
		Year:        tags.YearOf(date),
		Genre:       d.Genre,
	}
}

// trackLayout completes the album metadata with the finalized title and
// the track number of t.
func trackLayout(m rename.TrackMetadata, t Track) rename.TrackMetadata {
	m.Title, _ = t.Tags.First(tags.FieldTitle)
	if raw, err := t.Tags.First(tags.FieldTrackNumber); err == nil {
		m.TrackNumber, _ = tags.ParseTrackNumber(raw)
	}
	return m
}

func logRejection(logger *slog.Logger, rej *Rejection) {
	attrs := []any{slog.String("kind", rej.Kind.String()), slog.String("reason", rej.Reason)}
	switch rej.Kind {
	case RejectIncomplete, RejectGeneral:
		logger.Info("album not imported", attrs...)
	default:
		logger.Warn("album rejected", attrs...)
	}
}

// isFatal reports whether err should end the run.
func isFatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, ErrRootUnavailable) ||
		export.IsResourceExhausted(err)
}

// listDirs returns the subdirectories of dir, sorted by name.
func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dir, e.Name()))
		}
	}
	return dirs, nil
}
