package depcache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sourcegraph/go-diff/diff"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/nbo-build/nbo/src/core"
)

// FormatVersion is the monotonic version written at the head of every
// persisted cache file. A cache whose stored version doesn't match is
// discarded wholesale rather than partially trusted.
const FormatVersion = 1

type onDiskCache struct {
	Version int
	Entries map[string]*core.DependencyInfo
}

// Cache is one dependency cache covering a base directory. Caches form a
// parent chain: a Lookup miss on this cache walks up to Parent.
type Cache struct {
	BaseDir string
	Parent  *Cache

	mu      sync.RWMutex
	entries map[string]*core.DependencyInfo
	dirty   bool
}

// New creates an empty cache rooted at baseDir, optionally chained under
// parent.
func New(baseDir string, parent *Cache) *Cache {
	return &Cache{BaseDir: baseDir, Parent: parent, entries: map[string]*core.DependencyInfo{}}
}

// Load reads a persisted cache from path. A missing file yields an empty,
// non-dirty cache. A version mismatch or corrupt file discards the cache
// entirely and logs a non-fatal CacheError, also returning an empty cache,
// since the dependency cache is a pure rebuild-avoidance optimization and
// never itself blocks the build.
func Load(path, baseDir string, parent *Cache) (*Cache, error) {
	c := New(baseDir, parent)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, core.NewCacheError(fmt.Sprintf("opening dependency cache %s", path), err)
	}
	defer f.Close()

	var disk onDiskCache
	if err := gob.NewDecoder(f).Decode(&disk); err != nil {
		log.Warningf("discarding corrupt dependency cache %s: %s", path, err)
		return c, nil
	}
	if disk.Version != FormatVersion {
		log.Warningf("discarding dependency cache %s: version %d != %d", path, disk.Version, FormatVersion)
		return c, nil
	}
	c.entries = disk.Entries
	return c, nil
}

// Save persists the cache to path if and only if it is dirty.
func (c *Cache) Save(path string) error {
	c.mu.RLock()
	if !c.dirty {
		c.mu.RUnlock()
		return nil
	}
	disk := onDiskCache{Version: FormatVersion, Entries: c.entries}
	c.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return core.NewCacheError(fmt.Sprintf("creating directory for dependency cache %s", path), err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return core.NewCacheError(fmt.Sprintf("writing dependency cache %s", path), err)
	}
	if err := gob.NewEncoder(f).Encode(disk); err != nil {
		f.Close()
		return core.NewCacheError(fmt.Sprintf("encoding dependency cache %s", path), err)
	}
	if err := f.Close(); err != nil {
		return core.NewCacheError(fmt.Sprintf("closing dependency cache %s", path), err)
	}
	return os.Rename(tmp, path)
}

// SaveAll saves every cache in caches concurrently, stopping at the first
// error.
func SaveAll(caches []*Cache, pathFor func(*Cache) string) error {
	var g errgroup.Group
	for _, c := range caches {
		c := c
		g.Go(func() error { return c.Save(pathFor(c)) })
	}
	return g.Wait()
}

// Lookup resolves output's DependencyInfo, walking up the parent chain
// until a cache whose BaseDir covers output is found. A cache "covers" a
// path when the path lies under (or equals) its BaseDir.
func (c *Cache) Lookup(output string) (*core.DependencyInfo, bool) {
	for cache := c; cache != nil; cache = cache.Parent {
		if !cache.covers(output) {
			continue
		}
		cache.mu.RLock()
		info, ok := cache.entries[output]
		cache.mu.RUnlock()
		if ok {
			return info, true
		}
	}
	return nil, false
}

func (c *Cache) covers(path string) bool {
	rel, err := filepath.Rel(c.BaseDir, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// Insert records output's dependency info and marks the cache dirty. If an
// existing entry's dependency set differs from the new one, a diagnostic
// diff is logged at debug level before the entry is replaced.
func (c *Cache) Insert(output string, info *core.DependencyInfo, resolve func(core.FileHandle) string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[output]; ok && !old.Equal(info) && resolve != nil {
		log.Debugf("dependency set for %s changed:\n%s", output, renderDependencyDiff(output, old, info, resolve))
	}
	c.entries[output] = info
	c.dirty = true
}

// renderDependencyDiff produces a unified-diff rendering of the dependency
// path lists before and after, purely for the debug log; parse failures
// just fall back to a plain before/after listing.
func renderDependencyDiff(output string, old, updated *core.DependencyInfo, resolve func(core.FileHandle) string) string {
	oldLines := resolvedLines(old, resolve)
	newLines := resolvedLines(updated, resolve)

	fd := &diff.FileDiff{
		OrigName: output + ".prev",
		NewName:  output,
		Hunks: []*diff.Hunk{{
			OrigStartLine: 1,
			OrigLines:     int32(len(oldLines)),
			NewStartLine:  1,
			NewLines:      int32(len(newLines)),
			Body:          []byte(diffBody(oldLines, newLines)),
		}},
	}
	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return strings.Join(newLines, "\n")
	}
	return string(out)
}

func diffBody(oldLines, newLines []string) string {
	oldSet := map[string]bool{}
	for _, l := range oldLines {
		oldSet[l] = true
	}
	newSet := map[string]bool{}
	for _, l := range newLines {
		newSet[l] = true
	}
	var b strings.Builder
	for _, l := range oldLines {
		if !newSet[l] {
			fmt.Fprintf(&b, "-%s\n", l)
		}
	}
	for _, l := range newLines {
		if !oldSet[l] {
			fmt.Fprintf(&b, "+%s\n", l)
		}
	}
	return b.String()
}

func resolvedLines(info *core.DependencyInfo, resolve func(core.FileHandle) string) []string {
	lines := make([]string, 0, len(info.Dependencies))
	for _, h := range info.Dependencies {
		lines = append(lines, resolve(h))
	}
	slices.Sort(lines)
	return lines
}
