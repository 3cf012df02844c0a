package logging

import (
	"log/slog"
)

// Common attribute keys.
const (
	FieldComponent = "component"
	FieldRun       = "run"
	FieldArtist    = "artist"
	FieldAlbum     = "album"
	FieldPath      = "path"
)

// Error returns an "error" attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Album returns the attributes identifying an album directory.
func Album(artist, album string) slog.Attr {
	return slog.Group("", slog.String(FieldArtist, artist), slog.String(FieldAlbum, album))
}

// NewComponentLogger creates a logger with a component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}
