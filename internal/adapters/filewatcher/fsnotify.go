// Package filewatcher monitors the receipt drop folder.
// Clean Architecture: Infrastructure-side adapter; new image files are fed
// into the ingestion use case by the composition root.
package filewatcher

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ImageEvent signals a new or updated receipt image in the drop folder.
type ImageEvent struct {
	Path string
}

// Watcher emits events for receipt image files using fsnotify.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
}

// NewWatcher creates a watcher for the given image extensions.
func NewWatcher(extensions []string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".png", ".jpg", ".jpeg", ".webp"}
	}

	return &Watcher{
		watcher:    w,
		extensions: extensions,
	}, nil
}

// Watch starts monitoring dir and emits an event for each image file
// created or written there.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan ImageEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ImageEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				select {
				case events <- ImageEvent{Path: event.Name}:
				case <-ctx.Done():
					return
				}
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// isWatchedExtension checks if the file has a watched image extension.
func (w *Watcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
