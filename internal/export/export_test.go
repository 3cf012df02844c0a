package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestNewExporter_SanitizesRelativePart(t *testing.T) {
	root := filepath.Join(t.TempDir(), "export.root")

	e, err := NewExporter(root, "Björk/REL001 - Vol. 1")
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}

	want := filepath.Join(root, "Bjork", "REL001 - Vol 1")
	if e.Dir() != want {
		t.Errorf("Dir() = %q, want %q", e.Dir(), want)
	}
	if info, err := os.Stat(want); err != nil || !info.IsDir() {
		t.Errorf("directory %s not created: %v", want, err)
	}
}

func TestExport_MovesAndRelaxesPermissions(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "in", "01 Track: One.flac")
	writeFile(t, src, "audio")

	e, err := NewExporter(filepath.Join(tmp, "out"), "Artist/Album")
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}

	dst, err := e.Export(context.Background(), src)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if want := filepath.Join(tmp, "out", "Artist", "Album", "01 Track_ One.flac"); dst != want {
		t.Errorf("Export() = %q, want %q", dst, want)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if info.Mode().Perm() != FileMode {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), FileMode)
	}
	if e.Files() != 1 || e.Bytes() != int64(len("audio")) {
		t.Errorf("Files() = %d, Bytes() = %d", e.Files(), e.Bytes())
	}
}

func TestExportAs_ReplacesExisting(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.mp3")
	writeFile(t, src, "new")
	writeFile(t, filepath.Join(tmp, "out", "A", "03 Title.mp3"), "old")

	e, err := NewExporter(filepath.Join(tmp, "out"), "A")
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	dst, err := e.ExportAs(context.Background(), src, "03 Title.mp3")
	if err != nil {
		t.Fatalf("ExportAs() error = %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestExport_MissingSource(t *testing.T) {
	tmp := t.TempDir()
	e, err := NewExporter(tmp, "A")
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	if _, err := e.Export(context.Background(), filepath.Join(tmp, "nope.flac")); err == nil {
		t.Error("Export() expected error for missing source")
	}
}

func TestCopyFile(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "a.txt")
	dst := filepath.Join(tmp, "b.txt")
	writeFile(t, src, "content")

	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile() error = %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "content" {
		t.Errorf("copy = %q, %v", got, err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("copyFile must keep the source: %v", err)
	}
}

func TestSafeDelete(t *testing.T) {
	t.Run("removes clutter and directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "album")
		writeFile(t, filepath.Join(dir, ".DS_Store"), "x")
		writeFile(t, filepath.Join(dir, "cover.jpg"), "x")

		if !SafeDelete(dir) {
			t.Fatal("SafeDelete() = false, want true")
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("directory still exists: %v", err)
		}
	})

	t.Run("keeps directory with stray files", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "album")
		writeFile(t, filepath.Join(dir, "notes.txt"), "x")

		if SafeDelete(dir) {
			t.Fatal("SafeDelete() = true, want false")
		}
		if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
			t.Errorf("stray file removed: %v", err)
		}
	})

	t.Run("missing directory counts as deleted", func(t *testing.T) {
		if !SafeDelete(filepath.Join(t.TempDir(), "gone")) {
			t.Error("SafeDelete() = false for missing directory")
		}
	})
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("stops on permanent error", func(t *testing.T) {
		calls := 0
		errPermanent := errors.New("permanent")
		err := retryWithBackoff(context.Background(), "op", func() error {
			calls++
			return errPermanent
		})
		if !errors.Is(err, errPermanent) {
			t.Errorf("error = %v, want wrapped permanent", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("retries transient error", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			calls := 0
			start := time.Now()
			err := retryWithBackoff(context.Background(), "op", func() error {
				calls++
				if calls < 3 {
					return os.ErrDeadlineExceeded
				}
				return nil
			})
			if err != nil {
				t.Errorf("error = %v, want nil", err)
			}
			if calls != 3 {
				t.Errorf("calls = %d, want 3", calls)
			}
			// 200ms then 400ms of backoff
			if got := time.Since(start); got != 600*time.Millisecond {
				t.Errorf("elapsed = %v, want 600ms", got)
			}
		})
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			calls := 0
			err := retryWithBackoff(context.Background(), "op", func() error {
				calls++
				return os.ErrDeadlineExceeded
			})
			if !errors.Is(err, os.ErrDeadlineExceeded) {
				t.Errorf("error = %v, want wrapped deadline", err)
			}
			if calls != maxRetries+1 {
				t.Errorf("calls = %d, want %d", calls, maxRetries+1)
			}
		})
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		start := time.Now()
		err := retryWithBackoff(ctx, "op", func() error { return os.ErrDeadlineExceeded })
		if err == nil {
			t.Fatal("expected error")
		}
		if time.Since(start) > time.Second {
			t.Error("retry did not stop on cancellation")
		}
	})
}
