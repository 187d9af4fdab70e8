package sqlite

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher is a best-effort notifier for "the backing database file changed
// out from under this process", used by flowctl status --watch. It does
// not attempt to diff what changed; callers re-read on every event.
type Watcher struct {
	w      *fsnotify.Watcher
	Events <-chan struct{}
}

// WatchFile starts watching the database file at path for writes. The
// returned Watcher's Events channel is closed when ctx is done or the
// underlying watch fails.
func WatchFile(ctx context.Context, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("sqlite: create watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("sqlite: watch %s: %w", path, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer fw.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					select {
					case out <- struct{}{}:
					default:
					}
				}
			case <-fw.Errors:
				// best-effort: keep watching past transient errors
			}
		}
	}()

	return &Watcher{w: fw, Events: out}, nil
}
