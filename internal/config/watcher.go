package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"pulse/internal/event"
	"pulse/internal/logger"
)

// Watch publishes System(CONFIG_RELOAD) on the bus whenever the config
// file is written. The returned closer stops the watcher.
func Watch(path string, bus *event.Bus) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors commonly replace the file, which
	// drops a watch registered on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	target := filepath.Clean(path)

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Infof("config: %s changed, publishing reload", path)
				bus.Publish(event.NewSystem(event.ConfigReload, path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("config watcher: %v", err)
			}
		}
	}()

	return watcher.Close, nil
}
