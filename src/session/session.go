// Package session provides BuildSession, the explicit context threaded
// through every orchestrator operation in place of package-level mutable
// caches: the rules assembly, the scope registry, the file-interning cache
// and the dependency-cache chain all hang off one session instance instead
// of living as global state with an implicit lifetime.
package session

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/actiongraph"
	"github.com/nbo-build/nbo/src/assembly"
	"github.com/nbo-build/nbo/src/core"
	"github.com/nbo-build/nbo/src/depcache"
	"github.com/nbo-build/nbo/src/fscache"
	"github.com/nbo-build/nbo/src/registry"
)

var log = logging.MustGetLogger("session")

// BuildSession owns every piece of state a build run needs, scoped to that
// run's lifetime. Nothing here is a package-level variable: a caller
// testing two unrelated builds in the same process constructs two
// independent sessions.
type BuildSession struct {
	ctx    context.Context
	cancel context.CancelFunc

	Config   *core.ProjectConfig
	Root     *assembly.Assembly
	Registry *registry.Registry
	Files    *fscache.Cache
	DepCache *depcache.Chain

	// Concurrency is the worker-pool width for bounded-parallel task
	// batches (directory scans, rule-assembly hashing, compile-environment
	// construction, dependency-file parsing -- the four job kinds the
	// concurrency model names as safe to parallelize).
	Concurrency int

	mu       sync.Mutex
	active   int
	pending  int
	done     int
	builders map[string]*actiongraph.Builder
}

// New creates a session. config/root/reg/files/depCache may be nil at
// construction and filled in as the pipeline progresses; concurrency <= 0
// defaults to 4.
func New(config *core.ProjectConfig, root *assembly.Assembly, reg *registry.Registry, files *fscache.Cache, depCache *depcache.Chain, concurrency int) *BuildSession {
	if concurrency <= 0 {
		concurrency = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BuildSession{
		ctx:         ctx,
		cancel:      cancel,
		Config:      config,
		Root:        root,
		Registry:    reg,
		Files:       files,
		DepCache:    depCache,
		Concurrency: concurrency,
		builders:    map[string]*actiongraph.Builder{},
	}
}

// Context returns the session's cancellation context. Worker loops select
// on Done() between tasks and exit after flushing whatever task they hold.
func (s *BuildSession) Context() context.Context { return s.ctx }

// Cancel requests the session stop; in-flight tasks finish, no new ones
// start, and the caller is expected to discard the partial action graph
// and skip any cache rewrite.
func (s *BuildSession) Cancel() { s.cancel() }

// Cancelled reports whether Cancel has been called.
func (s *BuildSession) Cancelled() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// BuilderFor returns the action-graph builder for the named target,
// creating one on first use. One builder per target, never shared.
func (s *BuildSession) BuilderFor(targetName, selfPath string) *actiongraph.Builder {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.builders[targetName]
	if !ok {
		b = actiongraph.NewBuilder(selfPath)
		s.builders[targetName] = b
	}
	return b
}

// Builders returns every action-graph builder created so far, keyed by
// target name.
func (s *BuildSession) Builders() map[string]*actiongraph.Builder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*actiongraph.Builder, len(s.builders))
	for k, v := range s.builders {
		out[k] = v
	}
	return out
}

// Counts returns the current (active, pending, done) task counters, purely
// for progress reporting.
func (s *BuildSession) Counts() (active, pending, done int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.pending, s.done
}

// Parallel runs jobs across a bounded worker pool sized by s.Concurrency,
// stopping at the first error and honoring cancellation between jobs. Used
// for the four task kinds the concurrency model marks safe to parallelize;
// callers needing a different shape (e.g. a recursive directory walk) use
// errgroup directly, as src/rulescan already does.
func (s *BuildSession) Parallel(jobs []func(ctx context.Context) error) error {
	s.mu.Lock()
	s.pending += len(jobs)
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(s.ctx)
	g.SetLimit(s.Concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.mu.Lock()
			s.pending--
			s.active++
			s.mu.Unlock()

			err := job(ctx)

			s.mu.Lock()
			s.active--
			s.done++
			s.mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Debugf("session parallel batch failed: %s", err)
		return err
	}
	return nil
}

// Finish saves the dependency-cache chain (if any) and releases session
// resources. Call only on a successful, non-cancelled session: a
// cancelled session's caches must be left untouched.
func (s *BuildSession) Finish() error {
	if s.Cancelled() {
		log.Debug("session cancelled, skipping dependency-cache save")
		return nil
	}
	if s.DepCache == nil {
		return nil
	}
	return s.DepCache.SaveAll()
}
