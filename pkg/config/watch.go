package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/debug"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/event"
	"github.com/Dicklesworthstone/pipeline_viewer/pkg/sched"
)

// Watcher re-reads the settings file when it changes on disk and publishes
// the new Settings on the bus as event.ConfigReloaded.
type Watcher struct {
	fw  *fsnotify.Watcher
	deb *sched.Debouncer
}

// Watch starts watching path. Editors replace files rather than write them in
// place, so the watch is registered on the directory and filtered by name.
func Watch(path string, bus *event.Bus) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{fw: fw, deb: sched.NewDebouncer(0)}
	name := filepath.Base(path)

	go func() {
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != name {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				w.deb.Trigger(func() {
					s, err := LoadFile(path)
					if err != nil {
						debug.Log("config: reload of %s failed: %v", path, err)
						return
					}
					debug.Log("config: reloaded %s", path)
					bus.Publish(event.ConfigReloaded, s)
				})
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				debug.Log("config: watch error: %v", err)
			}
		}
	}()

	return w, nil
}

// Close stops watching and drops any pending reload.
func (w *Watcher) Close() error {
	w.deb.Cancel()
	return w.fw.Close()
}
