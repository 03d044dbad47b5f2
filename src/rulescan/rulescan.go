// Package rulescan implements the rules source scanner: it enumerates
// module-rules, target-rules and automation-module files under a set of
// roots, with per-root memoization and selective invalidation.
package rulescan

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/fs"
)

var log = logging.MustGetLogger("rulescan")

// Suffixes identifying the three kinds of rule source file. The
// orchestrator doesn't care what host language backs them, only the
// suffix.
const (
	ModuleRulesSuffix     = ".module.rules.go"
	TargetRulesSuffix     = ".target.rules.go"
	AutomationModuleSuffix = ".automation.rules.go"
)

// Result is what scanning one root produces.
type Result struct {
	ModuleRuleFiles     []string
	TargetRuleFiles     []string
	AutomationModuleFiles []string
}

// Scanner enumerates rule files under a set of roots, caching per-root
// results until explicitly invalidated.
type Scanner struct {
	// Concurrency bounds the number of directories scanned in parallel.
	Concurrency int

	mu    sync.Mutex
	cache map[string]*Result
	// order lists the scanned roots in the order they were first scanned.
	order []string
}

// NewScanner creates a Scanner with the given parallelism (0 picks a default).
func NewScanner(concurrency int) *Scanner {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Scanner{Concurrency: concurrency, cache: map[string]*Result{}}
}

// Scan enumerates rule files under root, returning the memoized result if
// present. A missing additional-search root is always fatal.
func (s *Scanner) Scan(root string) (*Result, error) {
	s.mu.Lock()
	if r, ok := s.cache[root]; ok {
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, NewMissingRootError(root)
	}

	result := &Result{}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(s.Concurrency)

	var walk func(dir string) error
	walk = func(dir string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		names, err := fs.ReadDirNames(dir)
		if err != nil {
			log.Warning("Skipping unreadable directory %s: %s", dir, err)
			return nil
		}
		var subdirs []string
		stopDescent := false
		for _, name := range names {
			full := filepath.Join(dir, name)
			info, err := os.Lstat(full)
			if err != nil {
				continue
			}
			if info.IsDir() {
				subdirs = append(subdirs, full)
				continue
			}
			switch {
			case hasSuffix(name, ModuleRulesSuffix):
				mu.Lock()
				result.ModuleRuleFiles = append(result.ModuleRuleFiles, full)
				mu.Unlock()
				stopDescent = true
			case hasSuffix(name, TargetRulesSuffix):
				mu.Lock()
				result.TargetRuleFiles = append(result.TargetRuleFiles, full)
				mu.Unlock()
			case hasSuffix(name, AutomationModuleSuffix):
				mu.Lock()
				result.AutomationModuleFiles = append(result.AutomationModuleFiles, full)
				mu.Unlock()
				stopDescent = true
			}
		}
		if stopDescent {
			return nil
		}
		for _, sub := range subdirs {
			sub := sub
			g.Go(func() error { return walk(sub) })
		}
		return nil
	}

	g.Go(func() error { return walk(root) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fs.SortPaths(result.ModuleRuleFiles)
	fs.SortPaths(result.TargetRuleFiles)
	fs.SortPaths(result.AutomationModuleFiles)

	s.mu.Lock()
	s.cache[root] = result
	s.order = append(s.order, root)
	s.mu.Unlock()
	return result, nil
}

// Invalidate drops the memoized result for root, forcing the next Scan to
// re-walk the filesystem.
func (s *Scanner) Invalidate(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, root)
	for i, r := range s.order {
		if r == root {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Order returns the roots in the order they were first scanned. Nothing in
// the assembly compiler reads it: BuildChain links layers in the order of
// its own layer list.
func (s *Scanner) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func hasSuffix(name, suffix string) bool {
	return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
}
