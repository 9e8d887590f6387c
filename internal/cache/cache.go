// Package cache keeps loaded source tables keyed by file identity.
//
// An entry is addressed by the xxh3 fingerprint of the file's path,
// modification time and size together with the read options, so an edited
// file misses the cache on its own. Invalidate and Purge drop entries
// explicitly. A Cache is an ordinary value: there is no package-level state.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"saftetl/internal/etlerr"
	"saftetl/internal/table"
	"saftetl/internal/tableio"
)

// ReadFunc loads a file. tableio.Read has this signature.
type ReadFunc func(ctx context.Context, path string, opts tableio.ReadOptions) (*table.Table, error)

type entry struct {
	key uint64
	t   *table.Table
}

// Cache maps a source path to its last loaded table.
type Cache struct {
	mu      sync.Mutex
	read    ReadFunc
	entries map[string]entry
	log     *zap.Logger

	hits, misses int
}

// New returns an empty cache that loads through read (tableio.Read when nil).
func New(read ReadFunc, log *zap.Logger) *Cache {
	if read == nil {
		read = tableio.Read
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{read: read, entries: map[string]entry{}, log: log}
}

// Fingerprint hashes the identity of the file at path: the path itself, its
// modification time and its size. A missing file wraps etlerr.ErrNotFound.
func Fingerprint(path string) (uint64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", etlerr.ErrNotFound, path)
		}
		return 0, err
	}
	buf := make([]byte, 0, len(path)+48)
	buf = append(buf, path...)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, fi.ModTime().UnixNano(), 10)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, fi.Size(), 10)
	return xxh3.Hash(buf), nil
}

func entryKey(fp uint64, opts tableio.ReadOptions) uint64 {
	buf := strconv.AppendUint(nil, fp, 16)
	buf = append(buf, 0)
	buf = append(buf, opts.Sheet...)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, int64(opts.Comma), 10)
	return xxh3.Hash(buf)
}

// Read returns the table for path, loading it only when the file changed
// since the last call. The returned table is a clone the caller owns.
func (c *Cache) Read(ctx context.Context, path string, opts tableio.ReadOptions) (*table.Table, error) {
	fp, err := Fingerprint(path)
	if err != nil {
		return nil, err
	}
	key := entryKey(fp, opts)

	c.mu.Lock()
	e, ok := c.entries[path]
	if ok && e.key == key {
		c.hits++
		c.mu.Unlock()
		c.log.Debug("cache hit", zap.String("path", path))
		return e.t.Clone(), nil
	}
	c.misses++
	c.mu.Unlock()

	t, err := c.read(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = entry{key: key, t: t}
	c.mu.Unlock()
	c.log.Debug("cache miss", zap.String("path", path), zap.Int("rows", t.Len()))
	return t.Clone(), nil
}

// Changed reports whether path differs from the version held in the cache.
// A path that was never loaded counts as changed.
func (c *Cache) Changed(path string, opts tableio.ReadOptions) (bool, error) {
	fp, err := Fingerprint(path)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	return !ok || e.key != entryKey(fp, opts), nil
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = map[string]entry{}
	c.mu.Unlock()
}

// Stats returns the hit and miss counts since the cache was created.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
