package synthesizer

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// PromptWatcher reloads a PromptStore whenever the prompt file changes.
type PromptWatcher struct {
	path    string
	store   *PromptStore
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	done    chan struct{}
	started bool
}

// NewPromptWatcher creates a watcher for path. The parent directory is
// watched so editors that replace the file by rename are still seen.
func NewPromptWatcher(path string, store *PromptStore, logger *zap.Logger) (*PromptWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}

	return &PromptWatcher{
		path:    abs,
		store:   store,
		watcher: w,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start processes file events until ctx is cancelled or Stop is called.
func (w *PromptWatcher) Start(ctx context.Context) {
	w.started = true
	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				w.reload()
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("prompt watcher error", zap.Error(err))
			}
		}
	}()
}

func (w *PromptWatcher) reload() {
	prompts, err := LoadPrompts(w.path)
	if err != nil {
		w.logger.Warn("failed to reload prompts, keeping previous", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.store.Set(prompts)
	w.logger.Info("prompts reloaded", zap.String("path", w.path))
}

// Stop closes the underlying watcher and waits for the event loop to exit.
func (w *PromptWatcher) Stop() error {
	err := w.watcher.Close()
	if w.started {
		<-w.done
	}
	return err
}
