package depcache

import "path/filepath"

// Chain manages the set of loaded caches keyed by base directory and
// resolves the covering cache (creating and chaining new ones as needed) for
// any path under the build tree.
type Chain struct {
	root      string
	cachePath func(baseDir string) string
	caches    map[string]*Cache
}

// NewChain creates a Chain rooted at root; cachePath computes the on-disk
// location of a given base directory's cache file.
func NewChain(root string, cachePath func(baseDir string) string) *Chain {
	return &Chain{root: root, cachePath: cachePath, caches: map[string]*Cache{}}
}

// CacheFor returns the cache covering baseDir, loading it from disk (and
// wiring it under its parent, the next directory up toward root) if this is
// the first request for that directory.
func (ch *Chain) CacheFor(baseDir string) (*Cache, error) {
	if c, ok := ch.caches[baseDir]; ok {
		return c, nil
	}
	var parent *Cache
	if baseDir != ch.root {
		up := filepath.Dir(baseDir)
		if up != baseDir {
			p, err := ch.CacheFor(up)
			if err != nil {
				return nil, err
			}
			parent = p
		}
	}
	c, err := Load(ch.cachePath(baseDir), baseDir, parent)
	if err != nil {
		return nil, err
	}
	ch.caches[baseDir] = c
	return c, nil
}

// All returns every cache loaded so far, for a bulk SaveAll call.
func (ch *Chain) All() []*Cache {
	caches := make([]*Cache, 0, len(ch.caches))
	for _, c := range ch.caches {
		caches = append(caches, c)
	}
	return caches
}

// SaveAll persists every cache loaded through this chain, in parallel,
// skipping any that were never marked dirty.
func (ch *Chain) SaveAll() error {
	return SaveAll(ch.All(), func(c *Cache) string { return ch.cachePath(c.BaseDir) })
}
