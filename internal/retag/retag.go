// Package retag corrects genre tags in the electro export tree. Genres
// written with "/" as a separator are rewritten with "-".
package retag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/crate/internal/errmsg"
	"github.com/llehouerou/crate/internal/logging"
	"github.com/llehouerou/crate/internal/tags"
)

// Result counts the files seen by a pass.
type Result struct {
	Scanned int
	Changed int
	Failed  int
}

// Retagger rewrites genre separators below a root laid out as
// <artist>/<album>/<track>.
type Retagger struct {
	root   string
	logger *slog.Logger
}

// New creates a Retagger for root.
func New(root string, logger *slog.Logger) *Retagger {
	return &Retagger{
		root:   root,
		logger: logging.NewComponentLogger(logger, "retag"),
	}
}

// Run processes every track two directories below the root. Files that
// cannot be read or saved are counted as failed and skipped. The error is
// set only when the root cannot be read or ctx is canceled.
func (r *Retagger) Run(ctx context.Context) (Result, error) {
	var res Result
	artists, err := os.ReadDir(r.root)
	if err != nil {
		return res, fmt.Errorf("%s: %w", errmsg.OpGenreRetag, err)
	}

	for _, artist := range artists {
		if !artist.IsDir() {
			continue
		}
		albums, err := os.ReadDir(filepath.Join(r.root, artist.Name()))
		if err != nil {
			r.logger.Error(errmsg.OpGenreRetag.Failed(), slog.String(logging.FieldArtist, artist.Name()),
				logging.Error(err))
			continue
		}
		for _, album := range albums {
			if !album.IsDir() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}
			r.retagAlbum(filepath.Join(r.root, artist.Name(), album.Name()), &res)
		}
	}
	return res, nil
}

func (r *Retagger) retagAlbum(dir string, res *Result) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Error(errmsg.OpGenreRetag.Failed(), slog.String(logging.FieldPath, dir), logging.Error(err))
		return
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !tags.IsAudioFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		res.Scanned++
		changed, err := FixGenre(path)
		if err != nil {
			res.Failed++
			r.logger.Warn(errmsg.OpGenreRetag.Failed(), slog.String(logging.FieldPath, path), logging.Error(err))
			continue
		}
		if changed {
			res.Changed++
			r.logger.Debug("genre rewritten", slog.String(logging.FieldPath, path))
		}
	}
}

// FixGenre replaces "/" with "-" in the genre values of one file and saves
// it. It reports whether the file was changed; a file without a genre is
// left alone.
func FixGenre(path string) (bool, error) {
	f, err := tags.Open(path)
	if err != nil {
		return false, err
	}
	genres, err := f.Get(tags.FieldGenre)
	if errors.Is(err, tags.ErrFieldMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	changed := false
	for i, g := range genres {
		if strings.Contains(g, "/") {
			genres[i] = strings.ReplaceAll(g, "/", "-")
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	if err := f.Set(tags.FieldGenre, genres...); err != nil {
		return false, err
	}
	if err := f.Save(); err != nil {
		return false, err
	}
	return true, nil
}
