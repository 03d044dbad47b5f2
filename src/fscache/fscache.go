// Package fscache implements the file & directory interning cache: it
// canonicalizes paths, memoizes directory listings / existence / mtimes, and
// hands out a cheap content-change signal so higher layers (the dependency
// cache, the input discoverer) don't repeatedly hit the filesystem.
//
// The actual interned file-item representation is treated as an external
// collaborator: the low-level file-item interning layer. Handle here is
// intentionally the thinnest possible wrapper.
package fscache

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/djherbis/atime"
	"github.com/karrick/godirwalk"

	"github.com/nbo-build/nbo/src/core"
)

// Handle is the canonical, interned identity of a path. Two Handles compare
// equal iff they name the same canonical path.
type Handle = core.FileHandle

// dirEntry memoizes one directory's listing.
type dirEntry struct {
	names []string
	err   error
}

// fileEntry memoizes one file's existence, mtime and a content signal.
type fileEntry struct {
	exists  bool
	modTime time.Time
	accTime time.Time
	size    int64
	signal  uint64 // xxhash of path+size+modtime; cheap proxy for "did the content change"
}

// Cache is the file & directory interning cache. It is read-mostly: writes
// only happen on a cache miss or an explicit Invalidate, and are guarded by
// a single cache-wide lock; there is no per-path lock bucketing.
type Cache struct {
	mu      sync.RWMutex
	dirs    map[string]*dirEntry
	files   map[string]*fileEntry
	handles map[string]Handle
	next    Handle
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		dirs:    map[string]*dirEntry{},
		files:   map[string]*fileEntry{},
		handles: map[string]Handle{},
	}
}

// Canonicalize resolves path to an absolute, symlink-free, slash-separated form.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return filepath.ToSlash(abs), nil
}

// Intern returns the stable Handle for a canonical path, allocating one on
// first sight. This is the minimal interning the core's DependencyInfo needs;
// it does not attempt to be a full content-addressed file-item table.
func (c *Cache) Intern(canonicalPath string) Handle {
	c.mu.RLock()
	h, ok := c.handles[canonicalPath]
	c.mu.RUnlock()
	if ok {
		return h
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[canonicalPath]; ok {
		return h
	}
	c.next++
	c.handles[canonicalPath] = c.next
	return c.next
}

// ListDir returns the (memoized) names of a directory's immediate children.
func (c *Cache) ListDir(dir string) ([]string, error) {
	c.mu.RLock()
	e, ok := c.dirs[dir]
	c.mu.RUnlock()
	if ok {
		return e.names, e.err
	}
	names, err := readDir(dir)
	c.mu.Lock()
	c.dirs[dir] = &dirEntry{names: names, err: err}
	c.mu.Unlock()
	return names, err
}

func readDir(dir string) ([]string, error) {
	entries, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// Stat returns the memoized existence/mtime/size/access-time of a file,
// populating the cache entry on first sight.
func (c *Cache) Stat(path string) (exists bool, modTime time.Time, accTime time.Time, size int64) {
	c.mu.RLock()
	e, ok := c.files[path]
	c.mu.RUnlock()
	if ok {
		return e.exists, e.modTime, e.accTime, e.size
	}
	e = c.statFresh(path)
	c.mu.Lock()
	c.files[path] = e
	c.mu.Unlock()
	return e.exists, e.modTime, e.accTime, e.size
}

func (c *Cache) statFresh(path string) *fileEntry {
	info, err := os.Stat(path)
	if err != nil {
		return &fileEntry{exists: false}
	}
	at, err := atime.Stat(path)
	if err != nil {
		at = info.ModTime()
	}
	e := &fileEntry{
		exists:  true,
		modTime: info.ModTime(),
		accTime: at,
		size:    info.Size(),
	}
	e.signal = contentSignal(path, e.size, e.modTime)
	return e
}

// contentSignal is a cheap, non-cryptographic fingerprint of a file's
// identity (path + size + mtime). It is NOT a content hash: it exists purely
// as a fast, comparable signal for "might this file have changed", which is
// all the dependency cache and unity batcher need from C1.
func contentSignal(path string, size int64, modTime time.Time) uint64 {
	d := xxhash.New()
	d.Write([]byte(path))
	var buf [16]byte
	be64(buf[0:8], uint64(size))
	be64(buf[8:16], uint64(modTime.UnixNano()))
	d.Write(buf[:])
	return d.Sum64()
}

func be64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// ContentSignal returns the memoized content-change signal for path,
// populating it via Stat if necessary.
func (c *Cache) ContentSignal(path string) uint64 {
	c.mu.RLock()
	e, ok := c.files[path]
	c.mu.RUnlock()
	if ok {
		return e.signal
	}
	c.Stat(path)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[path].signal
}

// Invalidate drops any memoized directory listing and file stat for path, so
// the next access re-reads the filesystem. Used when an external watch (see
// Watcher) reports a change, or when a caller knows it just wrote to path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dirs, path)
	delete(c.files, path)
}
