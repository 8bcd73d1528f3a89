package readiness

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"orchestrator/pkg/logging"
)

// watch signals when the marker shows up in its parent directory. A watch
// that could not be set up never signals.
type watch struct {
	marker  string
	watcher *fsnotify.Watcher
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func newWatch(marker string) *watch {
	w := &watch{
		marker: filepath.Clean(marker),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Debug(subsystem, "fsnotify not available, polling %s: %v", marker, err)
		return w
	}

	dir := filepath.Dir(w.marker)
	if err := watcher.Add(dir); err != nil {
		logging.Debug(subsystem, "Cannot watch %s, polling %s: %v", dir, marker, err)
		watcher.Close()
		return w
	}
	w.watcher = watcher

	// Capture channels before the goroutine starts so close cannot race them.
	events := watcher.Events
	errs := watcher.Errors
	w.wg.Add(1)
	go w.run(events, errs)
	return w
}

func (w *watch) run(events <-chan fsnotify.Event, errs <-chan error) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.marker {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.wake <- struct{}{}:
			default:
			}
		case err, ok := <-errs:
			if !ok {
				return
			}
			logging.Debug(subsystem, "fsnotify error while watching %s: %v", w.marker, err)
		}
	}
}

func (w *watch) created() <-chan struct{} {
	return w.wake
}

func (w *watch) active() bool {
	return w.watcher != nil
}

func (w *watch) close() {
	w.once.Do(func() {
		close(w.done)
		if w.watcher != nil {
			w.watcher.Close()
		}
		w.wg.Wait()
	})
}
