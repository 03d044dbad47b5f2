// Package discovery walks a module directory, excluding foreign-platform
// folders and classifying the files it finds by extension.
package discovery

import (
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/fs"
)

var log = logging.MustGetLogger("discovery")

// FileClass is the classification bucket a discovered file falls into.
type FileClass int

const (
	ClassHeader FileClass = iota
	ClassISPCHeader
	ClassCPP
	ClassC
	ClassCC
	ClassObjectiveC
	ClassResourceCompiler
	ClassISPC
)

var extensionClass = map[string]FileClass{
	".h":    ClassHeader,
	".hpp":  ClassHeader,
	".inl":  ClassHeader,
	".isph": ClassISPCHeader,
	".cpp":  ClassCPP,
	".cxx":  ClassCPP,
	".c":    ClassC,
	".cc":   ClassCC,
	".m":    ClassObjectiveC,
	".mm":   ClassObjectiveC,
	".rc":   ClassResourceCompiler,
	".ispc": ClassISPC,
}

// Result is everything discovered under one module directory.
type Result struct {
	FilesByClass      map[FileClass][]string
	SourceDirectories map[string]bool
}

func newResult() *Result {
	return &Result{FilesByClass: map[FileClass][]string{}, SourceDirectories: map[string]bool{}}
}

// isSourceClass reports whether a class counts toward a directory's
// "source directories" set: a directory containing at least one compilable
// source file. Headers alone do not qualify a directory.
func isSourceClass(c FileClass) bool {
	switch c {
	case ClassCPP, ClassC, ClassCC, ClassObjectiveC, ClassResourceCompiler, ClassISPC:
		return true
	default:
		return false
	}
}

// Discoverer walks module directories, pruning foreign-platform folders.
type Discoverer struct {
	// ExcludedFolders is the union of all known platform names and
	// platform-group names minus those included by the active platform --
	// computed by the caller, since only the caller knows the active
	// platform's group membership.
	ExcludedFolders map[string]bool
}

// NewDiscoverer creates a Discoverer that prunes the given folder names.
func NewDiscoverer(excludedFolders []string) *Discoverer {
	d := &Discoverer{ExcludedFolders: map[string]bool{}}
	for _, f := range excludedFolders {
		d.ExcludedFolders[f] = true
	}
	return d
}

// Discover walks moduleDir recursively, classifying every file it finds and
// recording source directories.
func (d *Discoverer) Discover(moduleDir string) (*Result, error) {
	result := newResult()
	err := fs.Walk(moduleDir, func(name string, isDir bool) error {
		if isDir {
			base := filepath.Base(name)
			if name != moduleDir && d.ExcludedFolders[base] {
				log.Debug("pruning platform folder %s", name)
				return filepath.SkipDir
			}
			return nil
		}
		class, ok := extensionClass[strings.ToLower(filepath.Ext(name))]
		if !ok {
			return nil
		}
		result.FilesByClass[class] = append(result.FilesByClass[class], name)
		if isSourceClass(class) {
			result.SourceDirectories[filepath.Dir(name)] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for class := range result.FilesByClass {
		sortStable(result.FilesByClass[class])
	}
	return result, nil
}

func sortStable(files []string) {
	sort.SliceStable(files, func(i, j int) bool { return files[i] < files[j] })
}

// DefaultPlatformExcludedFolders returns every known platform/group name
// except those belonging to the active platform's group membership.
// activeGroups should include the active platform's own name.
func DefaultPlatformExcludedFolders(allPlatformNames []string, activeGroups map[string]bool) []string {
	var excluded []string
	for _, name := range allPlatformNames {
		if !activeGroups[name] {
			excluded = append(excluded, name)
		}
	}
	sort.Strings(excluded)
	return excluded
}
