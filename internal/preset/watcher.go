package preset

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a preset directory when its YAML files change.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	onReload func(*Library)
	debounce func(func())
	done     chan struct{}
	log      zerolog.Logger
}

// NewWatcher watches dir and its subdirectories. onReload receives the
// reloaded library; a directory that fails to parse is logged and skipped.
func NewWatcher(dir string, onReload func(*Library), log zerolog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		dir:      dir,
		onReload: onReload,
		debounce: debounce.New(100 * time.Millisecond),
		done:     make(chan struct{}),
		log:      log.With().Str("component", "preset-watch").Logger(),
	}

	if err := w.addDirectoryRecursive(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addDirectoryRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.log.Debug().Str("dir", path).Msg("watching")
		return nil
	})
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if !isPresetFile(event.Name) {
					continue
				}
				w.log.Debug().Str("file", event.Name).Msg("preset file changed")
				w.debounce(w.reload)

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Error().Err(err).Msg("watch error")

			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) reload() {
	lib, err := LoadDir(w.dir)
	if err != nil {
		w.log.Warn().Err(err).Msg("reload failed, keeping previous presets")
		return
	}
	w.log.Info().Int("layouts", len(lib.Layouts)).Int("components", len(lib.Components)).Msg("presets reloaded")
	w.onReload(lib)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
