package watch

import (
	"slices"
	"sync"
	"time"
)

// Debouncer collects paths and hands them to a callback once no new path
// was added for the configured delay.
type Debouncer struct {
	delay    time.Duration
	callback func([]string)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
}

// NewDebouncer creates a debouncer calling fn with the sorted batch of
// collected paths.
func NewDebouncer(delay time.Duration, fn func([]string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: fn,
		pending:  make(map[string]struct{}),
	}
}

// Add records path and restarts the delay.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[path] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, d.flush)
}

// Flush hands the pending paths to the callback immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	d.flush()
}

func (d *Debouncer) flush() {
	d.mu.Lock()

	if len(d.pending) == 0 || d.stopped {
		d.mu.Unlock()

		return
	}

	batch := make([]string, 0, len(d.pending))
	for p := range d.pending {
		batch = append(batch, p)
	}

	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	slices.Sort(batch)
	d.callback(batch)
}

// Stop drops the pending paths. Later calls to Add are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.stopped = true
	d.pending = make(map[string]struct{})
}
