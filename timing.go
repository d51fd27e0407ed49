// FILE: lixenwraith/tunable/timing.go
package tunable

import "time"

// Preset watching timing.
const (
	SpinWaitInterval     = 5 * time.Millisecond   // busy-wait quantum while stopping
	MinPollInterval      = 100 * time.Millisecond // floor for file stat polling
	ShutdownTimeout      = 100 * time.Millisecond // watcher termination window
	DefaultDebounce      = 500 * time.Millisecond // file change coalescence period
	DefaultPollInterval  = time.Second
	DefaultReloadTimeout = 5 * time.Second
	DefaultMaxWatchers   = 100
)
