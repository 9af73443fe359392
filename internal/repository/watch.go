package repository

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports keys whose files change inside a FileRepository directory.
type Watcher struct {
	w        *fsnotify.Watcher
	onChange func(key string)
	logger   *zap.Logger
}

func NewWatcher(dir string, onChange func(key string), logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{w: w, onChange: onChange, logger: logger}, nil
}

// Run blocks until ctx is done. Temp files written by FileRepository.Save are ignored;
// the rename that publishes them shows up as a Create on the key.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			key := filepath.Base(ev.Name)
			if strings.HasPrefix(key, ".") {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				w.logger.Info("model file changed", zap.String("key", key), zap.String("op", ev.Op.String()))
				w.onChange(key)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}
