package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileCache stores one JSON document per key under a directory. Freshness is
// judged by file modification time against the ttl given to NewFileCache; a
// zero ttl never expires. The expiration argument to Set is ignored.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileCache creates dir if needed.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Path returns the file backing key.
func (fc *FileCache) Path(key string) string {
	name := unsafeKeyChars.ReplaceAllString(key, "_")
	if filepath.Ext(name) == "" {
		name += ".json"
	}
	return filepath.Join(fc.dir, name)
}

func (fc *FileCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	return WriteFileAtomic(fc.Path(key), data)
}

func (fc *FileCache) Get(_ context.Context, key string, dest interface{}) error {
	path := fc.Path(key)
	if !fc.fresh(path) {
		return ErrCacheMiss
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrCacheMiss
		}
		return err
	}
	if err := decode(data, dest); err != nil {
		return fmt.Errorf("%w: corrupt entry %s: %v", ErrCacheMiss, key, err)
	}
	return nil
}

func (fc *FileCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := os.Remove(fc.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (fc *FileCache) Exists(_ context.Context, key string) (bool, error) {
	return fc.fresh(fc.Path(key)), nil
}

func (fc *FileCache) Close() error { return nil }

// Fresh reports whether the file at path exists and is younger than the ttl.
func (fc *FileCache) Fresh(path string) bool { return fc.fresh(path) }

func (fc *FileCache) fresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fc.ttl <= 0 || fc.now().Sub(info.ModTime()) < fc.ttl
}

// WriteFileAtomic writes through a temp file in the same directory and renames it.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
