// Package rendercache produces and reuses resized JPEG renders. Artifacts
// are keyed by source path, size label and source modification time, so
// mutating a source (rotation) invalidates its renders without any
// explicit eviction. Cache files are immutable once written and written
// atomically, so concurrent readers never see a partial artifact and
// concurrent regenerations of the same key are byte-identical
// last-writer-wins.
package rendercache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"picserve/internal/imaging"
	"picserve/pkg/apperrors"
)

// Size is the requested render size. Original means "serve the source
// bytes untouched" and never touches the cache store.
type Size struct {
	Width    int
	Height   int
	Original bool
}

// Label is the size component of the cache key.
func (s Size) Label() string {
	if s.Original {
		return "orig"
	}
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Result is a resolved render: the bytes to send plus the metadata the
// HTTP layer needs for conditional responses.
type Result struct {
	Bytes        []byte
	LastModified time.Time
	ETag         string // md5 hex of Bytes
}

type Cache struct {
	dir       string
	processor *imaging.Processor
}

func NewCache(dir string, processor *imaging.Processor) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &Cache{dir: dir, processor: processor}, nil
}

// Key derives the cache filename for a source and size. The source
// modification time is part of the hash: a rotated source gets a new key,
// never stale bytes.
func (c *Cache) Key(sourcePath string, size Size, modTime time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_u%d", sourcePath, size.Label(), modTime.Unix())))
	return hex.EncodeToString(sum[:]) + ".jpg"
}

// Resolve returns the bytes to serve for a source at the requested size,
// generating and persisting the render on a cache miss. Decode or encode
// failures on an existing source are hard errors; no artifact is written.
func (c *Cache) Resolve(sourcePath string, size Size) (*Result, error) {
	if size.Original {
		return c.load(sourcePath)
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source %s: %w", sourcePath, err)
	}

	cachePath := filepath.Join(c.dir, c.Key(sourcePath, size, info.ModTime()))
	if _, err := os.Stat(cachePath); err == nil {
		return c.load(cachePath)
	}

	rendered, err := c.render(sourcePath, size)
	if err != nil {
		return nil, err
	}
	if err := WriteAtomic(cachePath, rendered); err != nil {
		return nil, err
	}
	return c.load(cachePath)
}

func (c *Cache) render(sourcePath string, size Size) ([]byte, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w", sourcePath, err)
	}
	defer f.Close()

	img, _, err := c.processor.Decode(f)
	if err != nil {
		return nil, apperrors.ErrProcessingFailed(err)
	}

	resized := c.processor.CoverResize(img, size.Width, size.Height)
	data, err := c.processor.EncodeJPEGBytes(resized)
	if err != nil {
		return nil, apperrors.ErrProcessingFailed(err)
	}
	return data, nil
}

func (c *Cache) load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	sum := md5.Sum(data)
	return &Result{
		Bytes:        data,
		LastModified: info.ModTime(),
		ETag:         hex.EncodeToString(sum[:]),
	}, nil
}

// WriteAtomic writes to a temp file in the target directory and renames it
// into place. An aborted render leaves no partial file at the final key.
func WriteAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}
