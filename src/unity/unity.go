// Package unity partitions source files into adaptive (working-set) and
// unified groups, then greedily packs the unified files into byte-budgeted
// unity batches.
package unity

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("unity")

// DefaultByteBudget is the default per-batch size ceiling.
const DefaultByteBudget int64 = 384 * 1024

// DefaultMinFileCount is the minimum module source-file count below which
// unity batching is disabled entirely.
const DefaultMinFileCount = 4

// WorkingSetOracle reports whether a file is in the developer's active
// working set and should therefore compile standalone rather than folded
// into a unity batch.
type WorkingSetOracle func(file string) bool

// Batch is one generated unity translation unit.
type Batch struct {
	Name  string
	Files []string
	Bytes int64
}

// Plan is the batcher's output: the ordered unity batches, the adaptive
// (unbatched) files, and the mapping from each unified source to its batch.
type Plan struct {
	Batches       []*Batch
	AdaptiveFiles []string
	SourceToUnity map[string]string
}

// FileSizer resolves a file's size in bytes; tests inject a fake rather
// than touching the real filesystem.
type FileSizer func(path string) (int64, error)

// OSFileSizer stats the real filesystem.
func OSFileSizer(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Batcher groups source files into unity batches.
type Batcher struct {
	ByteBudget   int64
	MinFileCount int
	WorkingSet   WorkingSetOracle
	Size         FileSizer
}

// NewBatcher returns a Batcher with sensible defaults. Plan uses a
// Batcher's fields as given and fills in no defaults for zero values.
func NewBatcher() *Batcher {
	return &Batcher{ByteBudget: DefaultByteBudget, MinFileCount: DefaultMinFileCount, Size: OSFileSizer}
}

// Plan partitions files into adaptive and unified groups, then:
//  1. partitions input into adaptive and unified.
//  2. sorts unified files by name; greedily emits unity groups each <=
//     byte budget; an oversized file becomes its own group.
//  3. returns adaptive files unbatched.
func (b *Batcher) Plan(moduleName string, files []string) (*Plan, error) {
	plan := &Plan{SourceToUnity: map[string]string{}}

	if len(files) < b.MinFileCount {
		// Below the minimum-file-count threshold, unity is disabled
		// outright: every file compiles individually. That is the same
		// observable outcome as an adaptive file, so they share the
		// AdaptiveFiles list rather than a separate "ungrouped" bucket.
		plan.AdaptiveFiles = append([]string(nil), files...)
		return plan, nil
	}

	var unified []string
	for _, f := range files {
		if b.WorkingSet != nil && b.WorkingSet(f) {
			plan.AdaptiveFiles = append(plan.AdaptiveFiles, f)
		} else {
			unified = append(unified, f)
		}
	}
	sort.Strings(unified)

	var current []string
	var currentBytes int64
	flush := func() {
		if len(current) == 0 {
			return
		}
		name := fmt.Sprintf("Module.%s.%d.unity.cpp", moduleName, len(plan.Batches)+1)
		batch := &Batch{Name: name, Files: append([]string(nil), current...), Bytes: currentBytes}
		plan.Batches = append(plan.Batches, batch)
		for _, f := range current {
			plan.SourceToUnity[f] = name
		}
		current = nil
		currentBytes = 0
	}

	for _, f := range unified {
		size, err := b.Size(f)
		if err != nil {
			return nil, err
		}
		if size > b.ByteBudget {
			flush()
			name := fmt.Sprintf("Module.%s.%d.unity.cpp", moduleName, len(plan.Batches)+1)
			plan.Batches = append(plan.Batches, &Batch{Name: name, Files: []string{f}, Bytes: size})
			plan.SourceToUnity[f] = name
			continue
		}
		if currentBytes+size > b.ByteBudget {
			flush()
		}
		current = append(current, f)
		currentBytes += size
	}
	flush()

	return plan, nil
}
