// FILE: lixenwraith/tunable/watch.go
package tunable

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// Watch events sent to subscribers besides changed tunable paths.
const (
	EventFileDeleted        = "file_deleted"
	EventPermissionsChanged = "permissions_changed"
	EventReloadTimeout      = "reload_timeout"
	EventReloadErrorPrefix  = "reload_error:"
)

// WatchOptions configures preset watching
type WatchOptions struct {
	// PollInterval for file stat checks (minimum 100ms)
	PollInterval time.Duration

	// Debounce duration to avoid rapid reloads
	Debounce time.Duration

	// MaxWatchers limits concurrent subscriber channels
	MaxWatchers int

	// ReloadTimeout bounds one reload
	ReloadTimeout time.Duration

	// VerifyPermissions refuses to reload a file whose group/other permissions changed
	VerifyPermissions bool
}

// DefaultWatchOptions returns the standard watch options
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:      DefaultPollInterval,
		Debounce:          DefaultDebounce,
		MaxWatchers:       DefaultMaxWatchers,
		ReloadTimeout:     DefaultReloadTimeout,
		VerifyPermissions: true,
	}
}

// PresetWatcher re-applies a preset file to a subject when the file changes
// and reports the paths of tunables whose values changed.
// Reloads write the subject from the watcher goroutine; callers reading the
// subject concurrently synchronize on the change notifications.
type PresetWatcher struct {
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	opts             WatchOptions
	mutator          *Mutator
	subject          any
	filePath         string
	logger           *slog.Logger
	lastModTime      time.Time
	lastSize         int64
	lastMode         os.FileMode
	refusedMode      os.FileMode
	watching         atomic.Bool
	reloadInProgress atomic.Bool
	watchers         map[int64]chan string
	watcherID        atomic.Int64
	debounceTimer    *time.Timer
}

// WatchPreset starts polling path and re-applying it to subject on change.
// The file is not applied initially. Stop the watcher when done.
func (m *Mutator) WatchPreset(subject any, path string, opts WatchOptions) (*PresetWatcher, error) {
	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	if _, err := m.interceptor.Handlers(subject); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat preset file '%s': %w", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &PresetWatcher{
		ctx:         ctx,
		cancel:      cancel,
		opts:        opts,
		mutator:     m,
		subject:     subject,
		filePath:    path,
		logger:      m.interceptor.currentLogger(),
		lastModTime: info.ModTime(),
		lastSize:    info.Size(),
		lastMode:    info.Mode(),
		watchers:    make(map[int64]chan string),
	}

	w.watching.Store(true)
	go w.watchLoop()
	return w, nil
}

// Path returns the watched preset file.
func (w *PresetWatcher) Path() string {
	return w.filePath
}

// IsWatching returns true until the watcher is stopped
func (w *PresetWatcher) IsWatching() bool {
	return w.watching.Load()
}

// WatcherCount returns the number of active subscriber channels
func (w *PresetWatcher) WatcherCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.watchers)
}

// Subscribe returns a channel receiving changed tunable paths and watch events.
// The channel is closed when the watcher stops.
func (w *PresetWatcher) Subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Closed channel when stopped or at the subscriber limit
	if w.ctx.Err() != nil || len(w.watchers) >= w.opts.MaxWatchers {
		ch := make(chan string)
		close(ch)
		return ch
	}

	// Buffered so a slow subscriber does not block reloads
	ch := make(chan string, 10)
	id := w.watcherID.Add(1)
	w.watchers[id] = ch

	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.watchers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// Stop terminates the watcher and closes subscriber channels
func (w *PresetWatcher) Stop() {
	w.cancel()

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	// Wait for the watch loop to exit
	deadline := time.Now().Add(ShutdownTimeout)
	for w.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}
}

func (w *PresetWatcher) watchLoop() {
	defer w.watching.Store(false)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.checkAndReload()
		}
	}
}

// checkAndReload schedules a debounced reload when the file changed
func (w *PresetWatcher) checkAndReload() {
	info, err := os.Stat(w.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			w.notifyWatchers(EventFileDeleted)
		}
		return
	}

	changed := !info.ModTime().Equal(w.lastModTime) || info.Size() != w.lastSize

	if w.opts.VerifyPermissions && w.lastMode != 0 {
		if (info.Mode() & 0077) != (w.lastMode & 0077) {
			// Reported once per mode; reloads stay refused until the mode is restored
			if info.Mode() != w.refusedMode {
				w.refusedMode = info.Mode()
				w.logger.Warn("preset permissions changed, reload refused",
					"path", w.filePath,
					"old", w.lastMode,
					"new", info.Mode())
				w.notifyWatchers(EventPermissionsChanged)
			}
			return
		}
		w.refusedMode = 0
	}

	if !changed {
		return
	}

	w.lastModTime = info.ModTime()
	w.lastSize = info.Size()
	w.lastMode = info.Mode()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, w.performReload)
}

// performReload applies the file and notifies the paths whose values changed
func (w *PresetWatcher) performReload() {
	if !w.reloadInProgress.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadInProgress.Store(false)

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	before := w.snapshot()

	done := make(chan error, 1)
	go func() {
		done <- w.mutator.ApplyFile(w.subject, w.filePath)
	}()

	select {
	case err := <-done:
		if err != nil {
			w.logger.Warn("preset reload failed", "path", w.filePath, "error", err)
			w.notifyWatchers(EventReloadErrorPrefix + err.Error())
			return
		}

		after := w.snapshot()
		var changed []string
		for path, value := range after {
			if old, existed := before[path]; !existed || !reflect.DeepEqual(old, value) {
				changed = append(changed, path)
			}
		}
		w.logger.Debug("preset reloaded", "path", w.filePath, "changed", changed)
		for _, path := range changed {
			w.notifyWatchers(path)
		}

	case <-ctx.Done():
		w.notifyWatchers(EventReloadTimeout)
	}
}

// snapshot reads the current value of every tunable by path
func (w *PresetWatcher) snapshot() map[string]any {
	handlers, err := w.mutator.interceptor.Handlers(w.subject)
	if err != nil {
		return nil
	}
	values := make(map[string]any, len(handlers))
	for _, h := range handlers {
		if v, err := h.Get(); err == nil {
			values[h.Path()] = v
		}
	}
	return values
}

func (w *PresetWatcher) notifyWatchers(event string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.watchers {
		select {
		case ch <- event:
		default:
			// Subscriber full, event dropped
		}
	}
}
