package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/rolodex/internal/checksum"
)

// File implements Provider backed by a single data file on the local file
// system. The document format follows the file extension.
type File struct {
	path  string // absolute path to the data file
	codec codec

	mu      sync.Mutex
	lastSum string // checksum of the bytes last read or written
}

// NewFile creates a provider for the data file at path. The file need not
// exist yet.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("storage: data path is a directory: %s", abs)
	}
	return &File{path: abs, codec: codecFor(abs)}, nil
}

// Path returns the absolute path of the data file.
func (f *File) Path() string { return f.path }

// LastChecksum returns the checksum of the content this provider last read
// or wrote, or "" before the first successful Load or Save.
func (f *File) LastChecksum() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSum
}

// Load reads and decodes the data file.
func (f *File) Load() (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	var doc document
	if err := f.codec.decode(data, &doc); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w: %v", f.path, ErrMalformed, err)
	}
	snap, err := fromDocument(&doc)
	if err != nil {
		return nil, fmt.Errorf("storage: load %s: %w", f.path, err)
	}

	f.mu.Lock()
	f.lastSum = checksum.Sum(data)
	f.mu.Unlock()
	return snap, nil
}

// Save encodes s and atomically replaces the data file.
func (f *File) Save(s *Snapshot) error {
	data, err := f.codec.encode(toDocument(s))
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := writeAtomic(f.path, data); err != nil {
		return err
	}
	f.lastSum = checksum.Sum(data)
	return nil
}

// writeAtomic writes content via tmp file, fsync and rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rolodex-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
