package watcher

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval coalesces the burst of events editors produce when
// saving a file.
const debounceInterval = 500 * time.Millisecond

// CfgWatcher watches the server's config file and invokes a callback after
// changes settle. The directory is watched rather than the file itself
// because most editors replace the file on save.
type CfgWatcher struct {
	path      string
	onChange  func()
	fsWatcher *fsnotify.Watcher
	cancel    chan struct{}
}

// New creates a watcher for the given config file
func New(path string, onChange func()) (*CfgWatcher, error) {
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fsW.Add(filepath.Dir(path)); err != nil {
		fsW.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &CfgWatcher{
		path:      path,
		onChange:  onChange,
		fsWatcher: fsW,
		cancel:    make(chan struct{}),
	}, nil
}

// Start runs the event loop in a goroutine
func (w *CfgWatcher) Start() {
	go w.loop()
	log.Printf("[Watcher] Watching config file %s", w.path)
}

func (w *CfgWatcher) loop() {
	var timer *time.Timer

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, func() {
				log.Printf("[Watcher] Config file changed: %s", w.path)
				w.onChange()
			})

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[Watcher] Watch error: %v", err)

		case <-w.cancel:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Stop halts the watcher
func (w *CfgWatcher) Stop() {
	close(w.cancel)
	w.fsWatcher.Close()
}
