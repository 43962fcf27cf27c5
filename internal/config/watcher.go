// ABOUTME: Hot-reload support for the config file
// ABOUTME: Watches the file with fsnotify and notifies subscribers on change
package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// HotConfig wraps a Config with file-watch reload support. Reloads that
// fail to parse or validate keep the previous configuration.
type HotConfig struct {
	mu   sync.RWMutex
	cfg  Config
	path string
	subs []func(Config)

	watcher *fsnotify.Watcher
}

// NewHotConfig loads the file once and prepares it for watching.
func NewHotConfig(path string) (*HotConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &HotConfig{cfg: cfg, path: path}, nil
}

// Get returns the current configuration snapshot.
func (hc *HotConfig) Get() Config {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.cfg
}

// OnReload registers a callback invoked with each successfully reloaded
// configuration. Register before calling Watch.
func (hc *HotConfig) OnReload(fn func(Config)) {
	hc.subs = append(hc.subs, fn)
}

// Watch starts watching the config file for writes.
func (hc *HotConfig) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	hc.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					hc.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Config watcher error: %v", err)
			}
		}
	}()

	if err := watcher.Add(hc.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", hc.path, err)
	}
	return nil
}

// Close stops the watcher.
func (hc *HotConfig) Close() error {
	if hc.watcher == nil {
		return nil
	}
	return hc.watcher.Close()
}

func (hc *HotConfig) reload() {
	cfg, err := Load(hc.path)
	if err != nil {
		log.Printf("Config reload failed, keeping previous: %v", err)
		return
	}

	hc.mu.Lock()
	hc.cfg = cfg
	hc.mu.Unlock()

	log.Printf("Config reloaded from %s", hc.path)
	for _, fn := range hc.subs {
		fn(cfg)
	}
}
