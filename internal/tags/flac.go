package tags

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// flacFile stores fields as Vorbis comments.
type flacFile struct {
	fieldSet
	vendor string
}

// openFLAC reads the metadata blocks without touching the file. A
// prepended ID3v2 header is skipped.
func openFLAC(path string) (*flacFile, error) {
	f, err := readFLACMeta(path)
	if err != nil {
		return nil, err
	}

	ff := &flacFile{fieldSet: newFieldSet(path, flacSchema)}
	for _, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return nil, fmt.Errorf("parse vorbis comments: %w", err)
		}
		ff.vendor = cmts.Vendor
		for _, c := range cmts.Comments {
			key, value, ok := strings.Cut(c, "=")
			if !ok || key == "" {
				continue
			}
			ff.load(key, value)
		}
		break
	}
	return ff, nil
}

// Save rewrites the Vorbis comment block with the current field values.
func (ff *flacFile) Save() error {
	if len(ff.dirty) == 0 {
		return nil
	}

	f, err := parseFLAC(ff.path)
	if err != nil {
		return err
	}

	cmts := flacvorbis.New()
	if ff.vendor != "" {
		cmts.Vendor = ff.vendor
	}
	for _, key := range ff.order {
		for _, v := range ff.values[key] {
			if err := cmts.Add(strings.ToUpper(key), v); err != nil {
				return fmt.Errorf("add %s: %w", key, err)
			}
		}
	}
	block := cmts.Marshal()

	cmtIdx := -1
	for i, meta := range f.Meta {
		if meta.Type == flac.VorbisComment {
			cmtIdx = i
			break
		}
	}
	if cmtIdx >= 0 {
		f.Meta[cmtIdx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(ff.path); err != nil {
		return fmt.Errorf("save file: %w", err)
	}
	clear(ff.dirty)
	return nil
}

// readFLACMeta parses the metadata blocks of a FLAC file, starting after
// a prepended ID3v2 header if there is one.
func readFLACMeta(path string) (*flac.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	if id3Size, err := id3HeaderSize(path); err == nil && id3Size > 0 {
		if _, err := file.Seek(id3Size, io.SeekStart); err != nil {
			return nil, fmt.Errorf("skip ID3v2 header: %w", err)
		}
	}
	f, err := flac.ParseMetadata(file)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	return f, nil
}

// parseFLAC parses a whole FLAC file for rewriting. A prepended ID3v2
// header, which some download tools write, is stripped from the file first.
func parseFLAC(path string) (*flac.File, error) {
	f, err := flac.ParseFile(path)
	if err == nil {
		return f, nil
	}

	id3Size, sizeErr := id3HeaderSize(path)
	if sizeErr != nil || id3Size == 0 {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	if err := stripPrefix(path, id3Size); err != nil {
		return nil, fmt.Errorf("strip ID3v2 header: %w", err)
	}
	f, err = flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse file after ID3 strip: %w", err)
	}
	return f, nil
}

// id3HeaderSize returns the size of an ID3v2 header in front of a fLaC
// marker, or 0 if the file does not start with one.
func id3HeaderSize(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	header := make([]byte, 10)
	if _, err := io.ReadFull(file, header); err != nil {
		return 0, err
	}
	if !bytes.Equal(header[:3], []byte(id3Magic)) {
		return 0, nil
	}

	// Size is a syncsafe integer (7 bits per byte)
	size := int64(10) + (int64(header[6]&0x7f)<<21 |
		int64(header[7]&0x7f)<<14 |
		int64(header[8]&0x7f)<<7 |
		int64(header[9]&0x7f))

	if _, err := file.Seek(size, io.SeekStart); err != nil {
		return 0, err
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(file, magic); err != nil {
		return 0, err
	}
	if !bytes.Equal(magic, []byte("fLaC")) {
		return 0, errors.New("no fLaC marker found after ID3v2 header")
	}
	return size, nil
}

// stripPrefix removes the first n bytes of a file, preserving its mode.
func stripPrefix(path string, n int64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if int64(len(data)) <= n {
		return errors.New("file too small to strip header")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data[n:], info.Mode().Perm())
}
