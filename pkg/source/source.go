// Package source provides the positioned byte sources a chain index reads from.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// ErrSourceClosed is returned when reading from a closed source
var ErrSourceClosed = errors.New("source is closed")

// Mode selects how a file is accessed
type Mode string

const (
	// ModeFile uses positioned reads on an open file handle
	ModeFile Mode = "file"
	// ModeMmap maps the file read-only into memory
	ModeMmap Mode = "mmap"
)

// Source is a read-only, positioned view of a chain file.
type Source interface {
	io.ReaderAt
	// Size returns the length of the underlying data in bytes
	Size() int64
	// Close releases the underlying file or mapping
	Close() error
}

// Open opens path using the given access mode
func Open(path string, mode Mode) (Source, error) {
	switch mode {
	case ModeFile, "":
		return OpenFile(path)
	case ModeMmap:
		return OpenMmap(path)
	default:
		return nil, fmt.Errorf("unknown read mode %q", mode)
	}
}

// FileSource reads from an open file with ReadAt
type FileSource struct {
	path string
	file *os.File
	size int64
	mu   sync.RWMutex
}

// OpenFile opens the file at path for positioned reads
func OpenFile(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return &FileSource{
		path: path,
		file: file,
		size: stat.Size(),
	}, nil
}

// ReadAt reads data from the file at the given offset
func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.file == nil {
		return 0, ErrSourceClosed
	}
	return s.file.ReadAt(p, off)
}

// Size returns the size of the file when it was opened
func (s *FileSource) Size() int64 {
	return s.size
}

// Path returns the path the source was opened from
func (s *FileSource) Path() string {
	return s.path
}

// Close closes the file
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// MmapSource reads from a read-only memory mapping of a file
type MmapSource struct {
	f    *os.File
	data mmap.MMap
	r    *bytes.Reader
}

// OpenMmap maps the file at path read-only
func OpenMmap(path string) (*MmapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	// Mapping a zero-length file fails on most platforms
	if stat.Size() == 0 {
		return &MmapSource{f: f, r: bytes.NewReader(nil)}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map file: %w", err)
	}

	return &MmapSource{f: f, data: m, r: bytes.NewReader(m)}, nil
}

// ReadAt copies mapped bytes at the given offset
func (s *MmapSource) ReadAt(p []byte, off int64) (int, error) {
	if s.r == nil {
		return 0, ErrSourceClosed
	}
	return s.r.ReadAt(p, off)
}

// Size returns the mapped length
func (s *MmapSource) Size() int64 {
	if s.r == nil {
		return 0
	}
	return s.r.Size()
}

// Close unmaps the file and closes it
func (s *MmapSource) Close() error {
	s.r = nil
	if s.data != nil {
		if err := s.data.Unmap(); err != nil {
			return err
		}
		s.data = nil
	}
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}

// BytesSource serves reads from memory. Useful for decompressed exports and tests.
type BytesSource struct {
	r *bytes.Reader
}

// FromBytes wraps b without copying it
func FromBytes(b []byte) *BytesSource {
	return &BytesSource{r: bytes.NewReader(b)}
}

// ReadAt reads from the wrapped bytes
func (s *BytesSource) ReadAt(p []byte, off int64) (int, error) {
	return s.r.ReadAt(p, off)
}

// Size returns the length of the wrapped bytes
func (s *BytesSource) Size() int64 {
	return s.r.Size()
}

// Close is a no-op
func (s *BytesSource) Close() error {
	return nil
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*MmapSource)(nil)
	_ Source = (*BytesSource)(nil)
)
