package fscache

import (
	"github.com/fsnotify/fsnotify"
	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("fscache")

// Watcher drives cache invalidation from filesystem change notifications. It
// is the "content-change signals" half of C1: rather than re-stat every file
// on every incremental build, callers can watch the roots they care about and
// let the OS tell them what to re-check.
type Watcher struct {
	cache   *Cache
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching roots for changes, invalidating c's memoized
// entries as events arrive. Call Close to stop.
func NewWatcher(c *Cache, roots ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, r := range roots {
		if err := fw.Add(r); err != nil {
			log.Warning("Could not watch %s: %s", r, err)
		}
	}
	w := &Watcher{cache: c, watcher: fw, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.cache.Invalidate(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warning("Watch error: %s", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watch loop and releases the underlying OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
