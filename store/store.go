// Package store implements the on-disk piece cache: one append-only file
// per piece index, verified by SHA-1 once fully assembled.
package store

import (
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
)

// Store manages the per-piece cache files "{name}/{base}-cache-{index}"
// for one torrent download, where base is the last element of name.
type Store struct {
	dir  string
	name string
}

// New returns a Store whose cache directory is the path name.
func New(name string) *Store {
	return &Store{dir: name, name: name}
}

func (s *Store) cachePath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-cache-%d", filepath.Base(s.name), index))
}

// AppendBlock appends bytes to the cache file for index, creating the
// cache directory and file as needed. Only the worker currently holding
// the task for index may call this, so append-mode writes cannot race
// with a sibling piece's writes.
func (s *Store) AppendBlock(index int, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir %s: %w", s.dir, err)
	}
	f, err := os.OpenFile(s.cachePath(index), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening cache file for piece %d: %w", index, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing cache file for piece %d: %w", index, err)
	}
	return nil
}

// Reset truncates the cache file for index, discarding any bytes from a
// prior failed attempt so the next AppendBlock starts from byte zero.
func (s *Store) Reset(index int) error {
	path := s.cachePath(index)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("truncating cache file for piece %d: %w", index, err)
	}
	return f.Close()
}

// Verify reads back the cache file for index and compares its SHA-1
// against expectedHash.
func (s *Store) Verify(index int, expectedHash [20]byte) error {
	data, err := os.ReadFile(s.cachePath(index))
	if err != nil {
		return fmt.Errorf("reading cache file for piece %d: %w", index, err)
	}
	sum := sha1.Sum(data)
	if sum != expectedHash {
		return fmt.Errorf("piece %d failed integrity check: expected %x, got %x", index, expectedHash, sum)
	}
	return nil
}

// Stat returns the size in bytes of the cache file for index, or an error
// if it does not exist.
func (s *Store) Stat(index int) (int64, error) {
	info, err := os.Stat(s.cachePath(index))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Open opens the cache file for index for reading, used at concat time.
func (s *Store) Open(index int) (*os.File, error) {
	return os.Open(s.cachePath(index))
}

// Dir returns the cache directory's path, so callers can stage a sibling
// file next to it before the directory is removed.
func (s *Store) Dir() string {
	return s.dir
}

// Cleanup removes the cache directory and every file in it. The cache
// directory and the final output file share the same path, so the
// directory must be gone before the final file is created.
func (s *Store) Cleanup() error {
	return os.RemoveAll(s.dir)
}
