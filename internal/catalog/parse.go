package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// payloadID is the id of the script element holding the page data.
const payloadID = "__NEXT_DATA__"

var errNoPayload = errors.New("page data script not found")

type nextData struct {
	Props struct {
		PageProps struct {
			DehydratedState struct {
				Queries []struct {
					State struct {
						Data struct {
							Tracks struct {
								Data []searchTrack `json:"data"`
							} `json:"tracks"`
						} `json:"data"`
					} `json:"state"`
				} `json:"queries"`
			} `json:"dehydratedState"`
		} `json:"pageProps"`
	} `json:"props"`
}

type searchTrack struct {
	Score         float64 `json:"score"`
	CatalogNumber string  `json:"catalog_number"`
	TrackName     string  `json:"track_name"`
	Genre         []struct {
		GenreName string `json:"genre_name"`
		Name      string `json:"name"`
	} `json:"genre"`
	Release struct {
		ReleaseName string `json:"release_name"`
	} `json:"release"`
	Artists []struct {
		ArtistName string `json:"artist_name"`
	} `json:"artists"`
	Label struct {
		LabelName string `json:"label_name"`
	} `json:"label"`
}

// extractPayload returns the text of the page data script element.
func extractPayload(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	inPayload := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", errNoPayload
			}
			return "", fmt.Errorf("tokenize page: %w", z.Err())
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "script" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "id" && string(val) == payloadID {
					inPayload = true
					break
				}
				if !more {
					break
				}
			}
		case html.TextToken:
			if inPayload {
				return string(z.Text()), nil
			}
		case html.EndTagToken:
			if inPayload {
				// Empty script element
				return "", errNoPayload
			}
		}
	}
}

// ParsePage extracts candidates from a search result page.
func ParsePage(r io.Reader) ([]Candidate, error) {
	payload, err := extractPayload(r)
	if err != nil {
		return nil, err
	}

	var data nextData
	if err := json.NewDecoder(strings.NewReader(payload)).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode page data: %w", err)
	}
	queries := data.Props.PageProps.DehydratedState.Queries
	if len(queries) == 0 {
		return nil, errors.New("page data has no queries")
	}

	tracks := queries[0].State.Data.Tracks.Data
	candidates := make([]Candidate, 0, len(tracks))
	for _, t := range tracks {
		c := Candidate{
			Name:          t.Release.ReleaseName,
			Label:         t.Label.LabelName,
			CatalogNumber: t.CatalogNumber,
			Score:         t.Score,
		}
		if c.Name == "" {
			c.Name = t.TrackName
		}
		for _, a := range t.Artists {
			c.Artists = append(c.Artists, a.ArtistName)
		}
		for _, g := range t.Genre {
			name := g.GenreName
			if name == "" {
				name = g.Name
			}
			if name != "" {
				c.Genres = append(c.Genres, name)
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
