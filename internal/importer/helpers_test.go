package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/llehouerou/crate/internal/catalog"
	"github.com/llehouerou/crate/internal/tags"
	"github.com/llehouerou/crate/internal/tags/tagstest"
)

type fakeMatcher struct {
	match   *catalog.Match
	err     error
	queries []catalog.Query
}

func (f *fakeMatcher) Resolve(ctx context.Context, q catalog.Query) (*catalog.Match, error) {
	f.queries = append(f.queries, q)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.match == nil {
		return nil, catalog.ErrNoMatch
	}
	return f.match, nil
}

func noMatch() *fakeMatcher { return &fakeMatcher{} }

// albumFields returns consistent tags for track i (1-based) of an n-track
// electro album.
func albumFields(i, n int) map[string]string {
	return map[string]string{
		tags.FieldTitle:       fmt.Sprintf("Track %d", i),
		tags.FieldArtist:      "Artist A",
		tags.FieldAlbumArtist: "Artist A",
		tags.FieldAlbum:       "Album",
		tags.FieldGenre:       "Techno (Peak Time / Driving)",
		tags.FieldTrackNumber: fmt.Sprintf("%d/%d", i, n),
		tags.FieldDate:        "2024-05-01",
		tags.FieldLabel:       "Label",
	}
}

// writeAlbum creates n tracks named NN.ext in dir. edit may change the
// fields of each track before they are written.
func writeAlbum(t *testing.T, dir string, n int, ext string, edit func(i int, f map[string]string)) []string {
	t.Helper()
	var paths []string
	for i := 1; i <= n; i++ {
		fields := albumFields(i, n)
		if edit != nil {
			edit(i, fields)
		}
		for k, v := range fields {
			if v == "" {
				delete(fields, k)
			}
		}
		paths = append(paths, tagstest.Write(t, filepath.Join(dir, fmt.Sprintf("%02d%s", i, ext)), fields))
	}
	return paths
}

type roots struct {
	base, imp, todo, electro, general string
}

func newRoots(t *testing.T) roots {
	t.Helper()
	base := t.TempDir()
	r := roots{
		base:    base,
		imp:     filepath.Join(base, "import"),
		todo:    filepath.Join(base, "todo"),
		electro: filepath.Join(base, "export_electro"),
		general: filepath.Join(base, "export_general"),
	}
	if err := os.MkdirAll(r.imp, 0o755); err != nil {
		t.Fatal(err)
	}
	return r
}

func (r roots) config() Config {
	return Config{
		ImportRoot:  r.imp,
		TodoRoot:    r.todo,
		ElectroRoot: r.electro,
		GeneralRoot: r.general,
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func openTags(t *testing.T, path string) tags.File {
	t.Helper()
	f, err := tags.Open(path)
	if err != nil {
		t.Fatalf("open tags of %s: %v", path, err)
	}
	return f
}

func first(t *testing.T, f tags.File, field string) string {
	t.Helper()
	v, err := f.First(field)
	if err != nil {
		t.Fatalf("%s: %v", field, err)
	}
	return v
}
