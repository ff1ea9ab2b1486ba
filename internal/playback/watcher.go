package playback

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"nestor/internal/domain"
)

// MediaWatcher observa los directorios de los clips configurados y avisa cuando
// un archivo desaparece o vuelve a estar disponible. No recarga el perfil.
type MediaWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]string
	logger  *zap.Logger
}

func NewMediaWatcher(p *domain.Profile, logger *zap.Logger) (*MediaWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	mw := &MediaWatcher{watcher: w, files: make(map[string]string), logger: logger}
	dirs := make(map[string]struct{})
	for name, emo := range p.Emotions {
		clean := filepath.Clean(emo.File)
		mw.files[clean] = name
		dirs[filepath.Dir(clean)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			logger.Warn("cannot watch media directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	return mw, nil
}

// Run consume eventos hasta que ctx se cancela.
func (m *MediaWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handle(ev)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("media watcher error", zap.Error(err))
		}
	}
}

func (m *MediaWatcher) handle(ev fsnotify.Event) {
	name, ok := m.files[filepath.Clean(ev.Name)]
	if !ok {
		return
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		m.logger.Warn("media file removed", zap.String("emotion", name), zap.String("file", ev.Name))
	case ev.Has(fsnotify.Create):
		m.logger.Info("media file available", zap.String("emotion", name), zap.String("file", ev.Name))
	case ev.Has(fsnotify.Write):
		m.logger.Debug("media file updated", zap.String("emotion", name), zap.String("file", ev.Name))
	}
}

func (m *MediaWatcher) Close() error {
	return m.watcher.Close()
}
