package tags

import (
	"fmt"
	"strings"
)

// schema describes which fields a container can store and where fields it
// cannot store are redirected.
type schema struct {
	kind Kind
	// native reports whether a canonical field is stored as-is.
	native func(field string) bool
	// aliases maps a field to the equivalent field used for reads when the
	// field is absent and for writes when the field is not native.
	aliases map[string]string
}

// id3Frames maps canonical fields to ID3v2.4 text frames.
var id3Frames = map[string]string{
	FieldTitle:        "TIT2",
	FieldArtist:       "TPE1",
	FieldAlbum:        "TALB",
	FieldAlbumArtist:  "TPE2",
	FieldGenre:        "TCON",
	FieldDate:         "TDRC",
	FieldTrackNumber:  "TRCK",
	FieldDiscNumber:   "TPOS",
	FieldOrganization: "TPUB",
	FieldComposer:     "TCOM",
	FieldISRC:         "TSRC",
}

// id3v22Frames maps canonical fields to their ID3v2.2 frames. The date is
// read from TYE and TDA.
var id3v22Frames = map[string]string{
	FieldTitle:        "TT2",
	FieldArtist:       "TP1",
	FieldAlbum:        "TAL",
	FieldAlbumArtist:  "TP2",
	FieldGenre:        "TCO",
	FieldTrackNumber:  "TRK",
	FieldDiscNumber:   "TPA",
	FieldOrganization: "TPB",
	FieldComposer:     "TCM",
	FieldISRC:         "TRC",
}

var flacSchema = &schema{
	kind: KindFLAC,
	// Vorbis comments are free-form.
	native: func(field string) bool { return field != "" && !strings.ContainsAny(field, "=~") },
	aliases: map[string]string{
		FieldYear: FieldDate,
	},
}

var id3Schema = &schema{
	kind: KindID3,
	native: func(field string) bool {
		_, ok := id3Frames[field]
		return ok
	},
	aliases: map[string]string{
		FieldLabel:     FieldOrganization,
		FieldPublisher: FieldOrganization,
		FieldYear:      FieldDate,
	},
}

// resolve returns the key a write to field should land on.
func (s *schema) resolve(field string) (string, error) {
	field = strings.ToLower(field)
	if s.native(field) {
		return field, nil
	}
	if alias, ok := s.aliases[field]; ok && s.native(alias) {
		return alias, nil
	}
	return "", fmt.Errorf("%s (%s): %w", field, s.kind, ErrUnsupportedField)
}
