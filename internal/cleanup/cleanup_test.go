package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/crate/internal/catalog"
	"github.com/llehouerou/crate/internal/importer"
	"github.com/llehouerou/crate/internal/logging"
	"github.com/llehouerou/crate/internal/tags"
	"github.com/llehouerou/crate/internal/tags/tagstest"
)

func todoTrack(i int, album string) map[string]string {
	return map[string]string{
		tags.FieldTitle:       fmt.Sprintf("Track %d (Original Mix)", i),
		tags.FieldArtist:      "Artist A",
		tags.FieldAlbumArtist: "Artist A",
		tags.FieldAlbum:       album,
		tags.FieldGenre:       "Techno",
		tags.FieldTrackNumber: fmt.Sprint(i),
	}
}

func writeTodoAlbum(t *testing.T, dir string, n int, ext string, edit func(i int, f map[string]string)) {
	t.Helper()
	for i := 1; i <= n; i++ {
		fields := todoTrack(i, "REL1 - Album")
		if edit != nil {
			edit(i, fields)
		}
		for k, v := range fields {
			if v == "" {
				delete(fields, k)
			}
		}
		tagstest.Write(t, filepath.Join(dir, fmt.Sprintf("%02d%s", i, ext)), fields)
	}
}

func newCleaner(t *testing.T) (*Cleaner, string, string) {
	t.Helper()
	base := t.TempDir()
	todo := filepath.Join(base, "todo")
	electro := filepath.Join(base, "export_electro")
	require.NoError(t, os.MkdirAll(todo, 0o755))
	return New(Config{TodoRoot: todo, ElectroRoot: electro}, logging.NewNop()), todo, electro
}

func TestRunOnce_MovesCorrectedAlbum(t *testing.T) {
	c, todo, electro := newCleaner(t)
	albumDir := filepath.Join(todo, "Artist A", "TODO - Album")
	writeTodoAlbum(t, albumDir, 2, ".mp3", nil)
	require.NoError(t, os.WriteFile(filepath.Join(albumDir, "cover.jpg"), []byte("jpg"), 0o644))

	sum, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.Results, 1)
	assert.Equal(t, OutcomeCleaned, sum.Results[0].Outcome)
	assert.Equal(t, 2, sum.Results[0].Files)

	dest := filepath.Join(electro, "Artist A", "REL1 - Album")
	assert.Equal(t, dest, sum.Results[0].Destination)
	assert.FileExists(t, filepath.Join(dest, "01 Track 1 (Original Mix).mp3"))
	assert.FileExists(t, filepath.Join(dest, "02 Track 2 (Original Mix).mp3"))
	assert.NoDirExists(t, albumDir)
	assert.NoDirExists(t, filepath.Join(todo, "Artist A"))
}

func TestRunOnce_SkipsPendingAlbums(t *testing.T) {
	tests := []struct {
		name string
		edit func(i int, f map[string]string)
	}{
		{
			name: "identifier still unresolved",
			edit: func(_ int, f map[string]string) { f[tags.FieldAlbum] = "TODO - Album" },
		},
		{
			name: "no album artist",
			edit: func(_ int, f map[string]string) { f[tags.FieldAlbumArtist] = "" },
		},
		{
			name: "album without prefix",
			edit: func(_ int, f map[string]string) { f[tags.FieldAlbum] = "Album" },
		},
		{
			name: "one track not corrected",
			edit: func(i int, f map[string]string) {
				if i == 2 {
					f[tags.FieldAlbum] = "TODO - Album"
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, todo, electro := newCleaner(t)
			albumDir := filepath.Join(todo, "Artist A", "TODO - Album")
			writeTodoAlbum(t, albumDir, 2, ".flac", tt.edit)

			sum, err := c.RunOnce(context.Background())
			require.NoError(t, err)
			require.Len(t, sum.Results, 1)
			assert.Equal(t, OutcomeSkipped, sum.Results[0].Outcome)
			assert.FileExists(t, filepath.Join(albumDir, "01.flac"))
			assert.FileExists(t, filepath.Join(albumDir, "02.flac"))
			assert.NoDirExists(t, electro)
		})
	}
}

func TestRunOnce_ContinuesToSiblingAlbums(t *testing.T) {
	c, todo, electro := newCleaner(t)
	artistDir := filepath.Join(todo, "Artist A")
	writeTodoAlbum(t, filepath.Join(artistDir, "A - Pending"), 1, ".flac", func(_ int, f map[string]string) {
		f[tags.FieldAlbumArtist] = ""
	})
	writeTodoAlbum(t, filepath.Join(artistDir, "B - Ready"), 1, ".flac", func(_ int, f map[string]string) {
		f[tags.FieldAlbum] = "REL9 - Ready"
	})

	sum, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.Results, 2)
	assert.Equal(t, OutcomeSkipped, sum.Results[0].Outcome)
	assert.Equal(t, OutcomeCleaned, sum.Results[1].Outcome)
	assert.Equal(t, 1, sum.Count(OutcomeCleaned))

	assert.FileExists(t, filepath.Join(electro, "Artist A", "REL9 - Ready", "01 Track 1 (Original Mix).flac"))
	assert.DirExists(t, filepath.Join(artistDir, "A - Pending"))
}

func TestRunOnce_RemovesEmptyAlbums(t *testing.T) {
	c, todo, _ := newCleaner(t)
	albumDir := filepath.Join(todo, "Artist A", "Empty")
	require.NoError(t, os.MkdirAll(albumDir, 0o755))

	sum, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.Results, 1)
	assert.Equal(t, OutcomeRemoved, sum.Results[0].Outcome)
	assert.NoDirExists(t, filepath.Join(todo, "Artist A"))
}

func TestRunOnce_MissingTodoRoot(t *testing.T) {
	c := New(Config{TodoRoot: filepath.Join(t.TempDir(), "missing"), ElectroRoot: t.TempDir()}, logging.NewNop())
	sum, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.Results)
}

// An album without a catalog match lands in todo; once the operator sets
// the identifier and album artist, cleanup promotes it to the electro tree.
func TestImportThenCleanup(t *testing.T) {
	base := t.TempDir()
	cfg := importer.Config{
		ImportRoot:  filepath.Join(base, "import"),
		TodoRoot:    filepath.Join(base, "todo"),
		ElectroRoot: filepath.Join(base, "export_electro"),
		GeneralRoot: filepath.Join(base, "export_general"),
	}
	albumDir := filepath.Join(cfg.ImportRoot, "Artist A", "Album")
	for i := 1; i <= 2; i++ {
		fields := todoTrack(i, "Album")
		fields[tags.FieldTitle] = fmt.Sprintf("Track %d", i)
		fields[tags.FieldLabel] = "Label"
		tagstest.Write(t, filepath.Join(albumDir, fmt.Sprintf("%02d.flac", i)), fields)
	}

	_, err := importer.New(cfg, noMatch{}, logging.NewNop()).RunOnce(context.Background())
	require.NoError(t, err)

	todoAlbum := filepath.Join(cfg.TodoRoot, "Artist A", "TODO - Album")
	require.DirExists(t, todoAlbum)

	// Manual correction
	for i := 1; i <= 2; i++ {
		f, err := tags.Open(filepath.Join(todoAlbum, fmt.Sprintf("%02d Track %d (Original Mix).flac", i, i)))
		require.NoError(t, err)
		require.NoError(t, f.Set(tags.FieldAlbum, "REAL123 - Album"))
		require.NoError(t, f.Save())
	}

	c := New(Config{TodoRoot: cfg.TodoRoot, ElectroRoot: cfg.ElectroRoot}, logging.NewNop())
	sum, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Count(OutcomeCleaned))

	dest := filepath.Join(cfg.ElectroRoot, "Artist A", "REAL123 - Album")
	assert.FileExists(t, filepath.Join(dest, "01 Track 1 (Original Mix).flac"))
	assert.FileExists(t, filepath.Join(dest, "02 Track 2 (Original Mix).flac"))
	assert.NoDirExists(t, todoAlbum)
}

type noMatch struct{}

func (noMatch) Resolve(context.Context, catalog.Query) (*catalog.Match, error) {
	return nil, catalog.ErrNoMatch
}
