package source

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, data []byte) string {
	path := filepath.Join(t.TempDir(), "blk00000.dat")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestSourcesReadAt(t *testing.T) {
	data := []byte("0123456789abcdef")
	path := writeTempFile(t, data)

	for _, mode := range []Mode{ModeFile, ModeMmap} {
		t.Run(string(mode), func(t *testing.T) {
			src, err := Open(path, mode)
			if err != nil {
				t.Fatalf("Failed to open source: %v", err)
			}
			defer src.Close()

			if src.Size() != int64(len(data)) {
				t.Errorf("Expected size %d, got %d", len(data), src.Size())
			}

			buf := make([]byte, 4)
			n, err := src.ReadAt(buf, 6)
			if err != nil || n != 4 {
				t.Fatalf("ReadAt failed: n=%d err=%v", n, err)
			}
			if !bytes.Equal(buf, []byte("6789")) {
				t.Errorf("Expected 6789, got %q", buf)
			}

			// Short read at the end reports EOF
			n, err = src.ReadAt(buf, 14)
			if n != 2 || !errors.Is(err, io.EOF) {
				t.Errorf("Expected 2 bytes and EOF, got n=%d err=%v", n, err)
			}

			if err := src.Close(); err != nil {
				t.Errorf("Close failed: %v", err)
			}
			if _, err := src.ReadAt(buf, 0); !errors.Is(err, ErrSourceClosed) {
				t.Errorf("Expected ErrSourceClosed after close, got %v", err)
			}
			if err := src.Close(); err != nil {
				t.Errorf("Second close failed: %v", err)
			}
		})
	}
}

func TestOpenMmapEmptyFile(t *testing.T) {
	path := writeTempFile(t, nil)

	src, err := OpenMmap(path)
	if err != nil {
		t.Fatalf("Failed to open empty file: %v", err)
	}
	defer src.Close()

	if src.Size() != 0 {
		t.Errorf("Expected size 0, got %d", src.Size())
	}
	if _, err := src.ReadAt(make([]byte, 1), 0); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF reading empty mapping, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.dat")

	for _, mode := range []Mode{ModeFile, ModeMmap} {
		if _, err := Open(missing, mode); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s: expected ErrNotExist, got %v", mode, err)
		}
	}

	if _, err := Open(missing, Mode("tape")); err == nil {
		t.Errorf("Expected error for unknown mode")
	}
}

func TestOpenDirectory(t *testing.T) {
	if _, err := OpenFile(t.TempDir()); err == nil {
		t.Errorf("Expected error opening a directory")
	}
}

func TestFromBytes(t *testing.T) {
	src := FromBytes([]byte{1, 2, 3})
	if src.Size() != 3 {
		t.Errorf("Expected size 3, got %d", src.Size())
	}
	buf := make([]byte, 2)
	if n, err := src.ReadAt(buf, 1); n != 2 || err != nil {
		t.Errorf("ReadAt failed: n=%d err=%v", n, err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
