package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/metasnap/internal/telemetry/logger"
)

// Event is a change to a watched archive.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Removed reports whether the archive is gone.
func (e Event) Removed() bool {
	return e.Op.Has(fsnotify.Remove) || e.Op.Has(fsnotify.Rename)
}

// Watcher watches archive files for changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	callbacks []func(Event)
	mu        sync.RWMutex
	archives  map[string]struct{}
	dirs      map[string]struct{}
	done      chan struct{}
	stopOnce  sync.Once
	logger    logger.Logger

	// debounce drops events for an archive that arrive within this long of
	// the previous dispatched event. Zero dispatches every event.
	debounce time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithDebounce coalesces bursts of events on one archive. Removals and
// renames are always delivered and reset the window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a new archive watcher.
func New(opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		archives: make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		done:     make(chan struct{}),
		logger:   logger.Default(),
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add starts watching the archive at path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.dirs[dir]; !ok {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch: add %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}
	w.archives[abs] = struct{}{}

	w.logger.Debug("watching archive", "path", abs)
	return nil
}

// Archives returns the number of watched archives.
func (w *Watcher) Archives() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.archives)
}

// OnChange registers a callback to be called when a watched archive changes.
func (w *Watcher) OnChange(callback func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start dispatches events until Stop is called.
func (w *Watcher) Start() {
	w.logger.Info("archive watcher started", "archives", w.Archives())

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("archive watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		if cerr := w.watcher.Close(); cerr != nil {
			err = fmt.Errorf("watch: close: %w", cerr)
			return
		}
		w.logger.Info("archive watcher stopped")
	})
	return err
}

func (w *Watcher) handle(event fsnotify.Event) {
	relevant := fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	if event.Op&relevant == 0 {
		return
	}
	path := filepath.Clean(event.Name)

	w.mu.RLock()
	_, watched := w.archives[path]
	callbacks := append([]func(Event){}, w.callbacks...)
	w.mu.RUnlock()

	if !watched {
		return
	}
	ev := Event{Path: path, Op: event.Op}
	if ev.Removed() {
		w.forget(path)
	} else if w.bounced(path) {
		return
	}

	w.logger.Debug("archive changed", "path", path, "op", event.Op.String())
	for _, cb := range callbacks {
		cb(ev)
	}
}

// forget drops the debounce state of path.
func (w *Watcher) forget(path string) {
	if w.debounce <= 0 {
		return
	}
	w.mu.Lock()
	delete(w.last, path)
	w.mu.Unlock()
}

// bounced records a dispatch for path and reports whether it falls inside
// the debounce window of the previous one.
func (w *Watcher) bounced(path string) bool {
	if w.debounce <= 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if last, ok := w.last[path]; ok && now.Sub(last) < w.debounce {
		return true
	}
	w.last[path] = now
	return false
}
