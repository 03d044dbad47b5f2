package depcache

import (
	"os"
	"sync"
	"time"
)

// Format selects which of the two accepted on-disk formats a dependency
// listing file is parsed as.
type Format int

const (
	FormatMakeDep Format = iota
	FormatPlainList
)

type parseMemo struct {
	mtime time.Time
	deps  []string
}

// ParseMemo ensures a given dependency-listing file is parsed at most once
// per mtime: a second request for the same file, observed with the same
// mtime, returns the previously parsed dependency list without reading the
// file again (the file is still stat'ed on every request to learn its mtime).
type ParseMemo struct {
	mu      sync.Mutex
	entries map[string]parseMemo
}

// NewParseMemo creates an empty memo.
func NewParseMemo() *ParseMemo {
	return &ParseMemo{entries: map[string]parseMemo{}}
}

// Parse returns the dependency list for path, reading and parsing it only
// if this is the first request or the file's mtime differs from the one
// seen at the last parse.
func (m *ParseMemo) Parse(path string, format Format) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	mtime := info.ModTime()

	m.mu.Lock()
	if cached, ok := m.entries[path]; ok && cached.mtime.Equal(mtime) {
		m.mu.Unlock()
		return cached.deps, nil
	}
	m.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var deps []string
	switch format {
	case FormatMakeDep:
		deps = ParseMakeDepFile(data)
	default:
		deps = ParsePlainList(data)
	}

	m.mu.Lock()
	m.entries[path] = parseMemo{mtime: mtime, deps: deps}
	m.mu.Unlock()
	return deps, nil
}
