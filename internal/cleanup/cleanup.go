// Package cleanup promotes albums from the todo tree to the electro export
// tree once their album tag carries a catalog identifier.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/crate/internal/errmsg"
	"github.com/llehouerou/crate/internal/export"
	"github.com/llehouerou/crate/internal/logging"
	"github.com/llehouerou/crate/internal/rename"
	"github.com/llehouerou/crate/internal/tags"
)

// unresolvedISRC is the album prefix written by the importer when no
// catalog identifier was found.
const unresolvedISRC = "TODO"

// albumSeparator separates the identifier prefix from the album title.
const albumSeparator = " - "

// Config holds the todo and electro roots and the destination layout.
type Config struct {
	TodoRoot    string
	ElectroRoot string
	Layout      rename.Layout
}

// Cleaner runs the cleanup pipeline.
type Cleaner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Cleaner. A zero Layout uses rename.DefaultLayout.
func New(cfg Config, logger *slog.Logger) *Cleaner {
	if cfg.Layout.Folder == "" {
		cfg.Layout = rename.DefaultLayout()
	}
	return &Cleaner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "cleanup"),
	}
}

// errSkip marks an album that is still waiting for manual correction.
var errSkip = errors.New("album not ready")

// RunOnce processes every album directory under the todo root, two levels
// deep (artist/album). An album that fails is logged and the remaining
// albums are still processed. The returned error is set only for a full or
// read-only filesystem, an unreadable todo root or cancellation.
func (c *Cleaner) RunOnce(ctx context.Context) (Summary, error) {
	var sum Summary
	artists, err := listDirs(c.cfg.TodoRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return sum, nil
		}
		return sum, fmt.Errorf("%s: %w", errmsg.OpTodoScan, err)
	}

	for _, artistDir := range artists {
		albums, err := listDirs(artistDir)
		if err != nil {
			c.logger.Error(errmsg.OpTodoScan.Failed(), slog.String(logging.FieldPath, artistDir),
				logging.Error(err))
			continue
		}
		for _, albumDir := range albums {
			res, err := c.cleanAlbum(ctx, albumDir)
			sum.Results = append(sum.Results, res)
			if err != nil && (ctx.Err() != nil || export.IsResourceExhausted(err)) {
				return sum, err
			}
		}
		export.SafeDelete(artistDir)
	}
	return sum, nil
}

// plannedMove is one file with its destination relative to the electro root.
type plannedMove struct {
	src  string
	dir  string
	name string
}

func (c *Cleaner) cleanAlbum(ctx context.Context, dir string) (Result, error) {
	res := Result{
		Artist: filepath.Base(filepath.Dir(dir)),
		Album:  filepath.Base(dir),
	}
	logger := c.logger.With(logging.Album(res.Artist, res.Album))

	// An album whose files were all moved by hand is just removed.
	if os.Remove(dir) == nil {
		res.Outcome = OutcomeRemoved
		return res, nil
	}

	moves, err := c.plan(dir)
	if err != nil {
		res.Reason = err.Error()
		if errors.Is(err, errSkip) {
			res.Outcome = OutcomeSkipped
			logger.Info("album still pending", slog.String("reason", res.Reason))
			return res, nil
		}
		res.Outcome = OutcomeFailed
		logger.Error(errmsg.OpAlbumCleanup.Failed(), logging.Error(err))
		return res, err
	}

	if err := c.move(ctx, moves, &res); err != nil {
		res.Outcome = OutcomeFailed
		res.Reason = err.Error()
		logger.Error(errmsg.OpAlbumCleanup.Failed(), logging.Error(err))
		return res, err
	}

	res.Outcome = OutcomeCleaned
	logger.Info("album moved to export", slog.String("destination", res.Destination),
		slog.Int("files", res.Files))
	if !export.SafeDelete(dir) {
		logger.Warn("album directory not removed", slog.String(logging.FieldPath, dir))
	}
	return res, nil
}

// plan reads the tags of every audio file and derives its destination.
// Nothing is moved unless every file is ready.
func (c *Cleaner) plan(dir string) ([]plannedMove, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read album directory: %w", err)
	}

	var moves []plannedMove
	for _, e := range entries {
		if !e.Type().IsRegular() || !tags.IsAudioFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		tag, err := tags.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read tags of %s: %w", e.Name(), err)
		}
		meta, err := trackMetadata(tag)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errSkip, e.Name(), err)
		}
		moves = append(moves, plannedMove{
			src:  path,
			dir:  c.cfg.Layout.AlbumDir(meta),
			name: c.cfg.Layout.FileName(meta, filepath.Ext(e.Name())),
		})
	}
	if len(moves) == 0 {
		return nil, fmt.Errorf("%w: no audio files", errSkip)
	}
	return moves, nil
}

// trackMetadata checks that a track is ready for export and returns the
// values its destination is built from.
func trackMetadata(tag *tags.Tag) (rename.TrackMetadata, error) {
	if tag.AlbumArtist == "" {
		return rename.TrackMetadata{}, errors.New("no album artist")
	}
	if tag.Album == "" {
		return rename.TrackMetadata{}, errors.New("no album")
	}
	isrc, album, ok := strings.Cut(tag.Album, albumSeparator)
	if !ok {
		return rename.TrackMetadata{}, fmt.Errorf("album %q has no identifier prefix", tag.Album)
	}
	if isrc == unresolvedISRC || isrc == "" {
		return rename.TrackMetadata{}, errors.New("identifier must be set first")
	}
	if tag.Title == "" {
		return rename.TrackMetadata{}, errors.New("no title")
	}
	if tag.TrackNumber <= 0 {
		return rename.TrackMetadata{}, errors.New("no track number")
	}
	year := ""
	if tag.Year > 0 {
		year = fmt.Sprint(tag.Year)
	}
	return rename.TrackMetadata{
		AlbumArtist: tag.AlbumArtist,
		Artist:      tag.Artist,
		Album:       album,
		ISRC:        isrc,
		Title:       tag.Title,
		TrackNumber: tag.TrackNumber,
		Year:        year,
		Genre:       tag.Genre,
	}, nil
}

func (c *Cleaner) move(ctx context.Context, moves []plannedMove, res *Result) error {
	exporters := make(map[string]*export.Exporter)
	for _, m := range moves {
		exp, ok := exporters[m.dir]
		if !ok {
			var err error
			exp, err = export.NewExporter(c.cfg.ElectroRoot, m.dir)
			if err != nil {
				return fmt.Errorf("prepare destination: %w", err)
			}
			exporters[m.dir] = exp
			if res.Destination == "" {
				res.Destination = exp.Dir()
			}
		}
		if _, err := exp.ExportAs(ctx, m.src, m.name); err != nil {
			return err
		}
		res.Files++
	}
	for _, exp := range exporters {
		res.Bytes += exp.Bytes()
	}
	return nil
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
