package tags

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
)

// id3Separator joins multiple values inside one ID3v2.4 text frame.
const id3Separator = "\x00"

// id3File stores fields as ID3v2 text frames.
type id3File struct {
	fieldSet
	// legacy is set for ID3v2.2 tags. Save replaces them with an ID3v2.4
	// tag holding every loaded field.
	legacy bool
}

// openID3 reads the tag without touching the file.
func openID3(path string) (*id3File, error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if errors.Is(err, id3v2.ErrUnsupportedVersion) {
		return openID3v22(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer t.Close()

	f := &id3File{fieldSet: newFieldSet(path, id3Schema)}
	for _, field := range slices.Sorted(maps.Keys(id3Frames)) {
		f.loadText(field, getID3TextFrame(t, id3Frames[field]))
	}
	// ID3v2.3 has no TDRC
	if _, ok := f.values[FieldDate]; !ok {
		f.loadText(FieldDate, legacyDate(getID3TextFrame(t, "TYER"), getID3TextFrame(t, "TDAT")))
	}
	return f, nil
}

// openID3v22 reads an ID3v2.2 tag, which the id3v2 library cannot parse.
func openID3v22(path string) (*id3File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	m, err := tag.ReadID3v2Tags(file)
	if err != nil {
		return nil, fmt.Errorf("read ID3v2.2 tag: %w", err)
	}
	raw := m.Raw()
	text := func(frameID string) string {
		s, _ := raw[frameID].(string)
		return strings.TrimRight(s, id3Separator)
	}

	f := &id3File{fieldSet: newFieldSet(path, id3Schema), legacy: true}
	for _, field := range slices.Sorted(maps.Keys(id3v22Frames)) {
		v := text(id3v22Frames[field])
		if field == FieldGenre {
			// Resolves ID3v1 genre references such as "(18)"
			v = m.Genre()
		}
		f.loadText(field, v)
	}
	f.loadText(FieldDate, legacyDate(text("TYE"), text("TDA")))
	return f, nil
}

// loadText loads the values of a text frame, which may hold several
// values separated by NUL.
func (f *id3File) loadText(field, text string) {
	for _, v := range strings.Split(text, id3Separator) {
		if v != "" {
			f.load(field, v)
		}
	}
}

// legacyDate combines a year frame with a DDMM date frame into
// YYYY-MM-DD. The year alone is returned when the date is not usable.
func legacyDate(year, ddmm string) string {
	if year == "" || len(ddmm) != 4 {
		return year
	}
	return year + "-" + ddmm[2:4] + "-" + ddmm[0:2]
}

// Save writes the changed frames. Frames not managed by the schema, such
// as attached pictures, are kept. An ID3v2.2 tag is replaced by an
// ID3v2.4 one carrying all fields.
func (f *id3File) Save() error {
	if len(f.dirty) == 0 && !f.legacy {
		return nil
	}

	if f.legacy {
		if err := stripID3v2Tag(f.path); err != nil {
			return fmt.Errorf("strip ID3v2.2 tag: %w", err)
		}
	}
	t, err := id3v2.Open(f.path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer t.Close()

	// Use ID3v2.4 with UTF-8 for better Unicode support
	t.SetVersion(4)
	t.SetDefaultEncoding(id3v2.EncodingUTF8)

	fields := maps.Clone(f.dirty)
	if f.legacy {
		for field := range f.values {
			fields[field] = true
		}
	}
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		frameID, ok := id3Frames[field]
		if !ok {
			continue
		}
		t.DeleteFrames(frameID)
		if field == FieldDate {
			t.DeleteFrames("TYER")
			t.DeleteFrames("TDAT")
		}
		values := f.values[field]
		if len(values) == 0 {
			continue
		}
		t.AddTextFrame(frameID, id3v2.EncodingUTF8, strings.Join(values, id3Separator))
	}

	if err := t.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	clear(f.dirty)
	f.legacy = false
	return nil
}

// getID3TextFrame reads a text frame value from an ID3v2 tag.
func getID3TextFrame(t *id3v2.Tag, frameID string) string {
	frames := t.GetFrames(frameID)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return strings.TrimRight(tf.Text, id3Separator)
	}
	return ""
}

// stripID3v2Tag removes the ID3v2 tag from the front of an MP3 file.
func stripID3v2Tag(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if len(data) < 10 || string(data[:3]) != id3Magic {
		return nil
	}

	// Synchsafe size plus the 10-byte header, and the footer if flagged
	tagSize := (int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])) + 10
	if data[5]&0x10 != 0 {
		tagSize += 10
	}
	if tagSize >= len(data) {
		return fmt.Errorf("ID3v2 tag size (%d) exceeds file size (%d)", tagSize, len(data))
	}
	return stripPrefix(path, int64(tagSize))
}
