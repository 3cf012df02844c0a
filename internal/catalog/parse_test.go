package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>Search</title>
<script src="/app.js"></script>
</head><body>
<div id="root"></div>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"dehydratedState":{"queries":[{"state":{"data":{"tracks":{"data":[
 {"score":1523.5,"catalog_number":"REL2024DIG","track_name":"Opus",
  "release":{"release_name":"Album"},
  "artists":[{"artist_name":"Artist A"},{"artist_name":"Artist B"}],
  "label":{"label_name":"Label"},
  "genre":[{"genre_name":"Techno (Peak Time / Driving)"},{"genre_name":"Techno (Peak Time / Driving)"},{"name":"House"}]},
 {"score":12,"catalog_number":null,"genre":[]}
]}}}}]}}}}
</script>
</body></html>`

func TestParsePage(t *testing.T) {
	cands, err := ParsePage(strings.NewReader(samplePage))
	require.NoError(t, err)
	require.Len(t, cands, 2)

	first := cands[0]
	assert.Equal(t, 1523.5, first.Score)
	assert.Equal(t, "REL2024DIG", first.CatalogNumber)
	assert.Equal(t, "Album", first.Name)
	assert.Equal(t, "Label", first.Label)
	assert.Equal(t, []string{"Artist A", "Artist B"}, first.Artists)
	assert.Equal(t, []string{"Techno (Peak Time / Driving)", "Techno (Peak Time / Driving)", "House"}, first.Genres)

	assert.Equal(t, "", cands[1].CatalogNumber)
	assert.Empty(t, cands[1].Genres)
}

func TestParsePage_Errors(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"no script", `<html><body>nothing here</body></html>`},
		{"other script only", `<script id="other">{}</script>`},
		{"empty script", `<script id="__NEXT_DATA__"></script>`},
		{"bad json", `<script id="__NEXT_DATA__">{not json</script>`},
		{"no queries", `<script id="__NEXT_DATA__">{"props":{"pageProps":{"dehydratedState":{"queries":[]}}}}</script>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePage(strings.NewReader(tt.page))
			assert.Error(t, err)
		})
	}
}
