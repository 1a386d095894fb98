package config

import (
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config when the file changes on disk and hands
// the refreshed Config to a callback. Used to hot-swap the connection
// list while the TUI is running.
type Watcher struct {
	config   *Config
	watcher  *fsnotify.Watcher
	onReload func(*Config)
	stop     chan struct{}
}

// NewWatcher creates a watcher for cfg's file. onReload runs on the
// watcher goroutine after every successful reload.
func NewWatcher(cfg *Config, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		config:   cfg,
		watcher:  fw,
		onReload: onReload,
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching. A config loaded without a file path is not
// watched.
func (w *Watcher) Start() error {
	path := w.config.Path()
	if path == "" {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		return err
	}
	go w.watch()
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) watch() {
	// Editors fire several events per save; debounce them.
	var debounce *time.Timer
	const delay = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(delay, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher error: %v", err)

		case <-w.stop:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	if err := w.config.Reload(); err != nil {
		log.Printf("config reload rejected: %v", err)
		return
	}
	if w.onReload != nil {
		w.onReload(w.config)
	}
}
