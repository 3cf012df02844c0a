// Package tagstest builds small synthetic audio files for tests.
package tagstest

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/llehouerou/crate/internal/tags"
)

// mp3Frame returns a minimal MPEG1 Layer3 frame (128kbps, 44100Hz, stereo).
func mp3Frame() []byte {
	frame := make([]byte, 417)
	frame[0] = 0xff
	frame[1] = 0xfb
	frame[2] = 0x90
	frame[3] = 0x00
	return frame
}

// flacStream returns a fLaC marker, a single STREAMINFO block and a few
// opaque frame bytes.
func flacStream() []byte {
	data := []byte("fLaC")
	// last-block flag + type 0 (STREAMINFO), length 34
	data = append(data, 0x80, 0x00, 0x00, 0x22)
	info := make([]byte, 34)
	info[0], info[1] = 0x10, 0x00 // min block size 4096
	info[2], info[3] = 0x10, 0x00 // max block size 4096
	// 44100Hz, 2 channels, 16 bits per sample
	info[10], info[11], info[12], info[13] = 0x0a, 0xc4, 0x42, 0xf0
	data = append(data, info...)
	return append(data, 0xff, 0xf8, 0x69, 0x08, 0x00, 0x00, 0x00, 0x00)
}

// Write creates an audio file at path, choosing the container from the
// extension, and stores the given fields through the tag store.
func Write(t *testing.T, path string, fields map[string]string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}

	var data []byte
	switch tags.KindOf(path) {
	case tags.KindFLAC:
		data = flacStream()
	case tags.KindID3:
		data = mp3Frame()
	default:
		t.Fatalf("unsupported test file %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	if len(fields) == 0 {
		return path
	}

	f, err := tags.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	for k, v := range fields {
		if err := f.Set(k, v); err != nil {
			t.Fatalf("set %s on %s: %v", k, path, err)
		}
	}
	if err := f.Save(); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

// WriteID3v22 creates an MP3 file at path carrying an ID3v2.2 tag with the
// given text frames (3-character IDs such as TT2 or TRK).
func WriteID3v22(t *testing.T, path string, frames map[string]string) string {
	t.Helper()

	var body []byte
	ids := make([]string, 0, len(frames))
	for id := range frames {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		// ISO-8859-1 encoding byte, then the text
		data := append([]byte{0x00}, frames[id]...)
		size := len(data)
		body = append(body, id...)
		body = append(body, byte(size>>16), byte(size>>8), byte(size))
		body = append(body, data...)
	}
	body = append(body, make([]byte, 16)...) // padding

	return writeWithPrefix(t, path, id3Header(2, len(body)), body, mp3Frame())
}

// PrependID3 writes an empty ID3v2.4 tag in front of an existing file, the
// way some download tools do with FLAC files.
func PrependID3(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	writeWithPrefix(t, path, id3Header(4, 16), make([]byte, 16), data)
}

// id3Header returns a 10-byte ID3v2 header with a synchsafe body size.
func id3Header(version byte, size int) []byte {
	return []byte{'I', 'D', '3', version, 0x00, 0x00,
		byte(size>>21) & 0x7f, byte(size>>14) & 0x7f, byte(size>>7) & 0x7f, byte(size) & 0x7f}
}

func writeWithPrefix(t *testing.T, path string, parts ...[]byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	var data []byte
	for _, p := range parts {
		data = append(data, p...)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
