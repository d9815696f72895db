// Package progress aggregates live scan counters under a single mutex and
// delivers throttled snapshots to an operator-supplied sink, plus installs
// signal-driven interrupt and one-shot status handling.
package progress

import (
	"sync"
	"time"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

// SinkFunc is invoked with a ScanProgress snapshot. It must not block —
// callers should make it non-blocking (e.g. a buffered channel send or a
// direct print) since it may be called under throttling pressure.
type SinkFunc func(model.ScanProgress)

// Tracker holds the mutex-guarded live counters for one scan. All mutation
// happens through its methods; Snapshot returns a defensive copy.
type Tracker struct {
	mu sync.Mutex

	total       int
	processed   int
	healthy     int
	suspicious  int
	corrupt     int
	errored     int
	currentFile string
	phase       model.Phase
	startedAt   time.Time
}

// NewTracker builds a Tracker for a scan of the given total file count.
func NewTracker(total int) *Tracker {
	return &Tracker{total: total, phase: model.PhaseIdle, startedAt: time.Now()}
}

// SetPhase records the current pass.
func (t *Tracker) SetPhase(phase model.Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = phase
}

// SetTotal updates the total file count; the Controller sets it once
// discovery has counted the files.
func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
}

// RecordStart notes the file a worker has just begun processing.
func (t *Tracker) RecordStart(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentFile = path
}

// RecordResult bumps the processed and per-status counters. Invariant:
// healthy + suspicious + corrupt + errored == processed after every call.
func (t *Tracker) RecordResult(status model.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	switch status {
	case model.StatusHealthy:
		t.healthy++
	case model.StatusSuspicious:
		t.suspicious++
	case model.StatusCorrupt:
		t.corrupt++
	case model.StatusError:
		t.errored++
	}
}

// Snapshot returns an immutable copy of the current counters.
func (t *Tracker) Snapshot() model.ScanProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return model.ScanProgress{
		Total:       t.total,
		Processed:   t.processed,
		Healthy:     t.healthy,
		Suspicious:  t.suspicious,
		Corrupt:     t.corrupt,
		Errored:     t.errored,
		CurrentFile: t.currentFile,
		Phase:       t.phase,
		StartedAt:   t.startedAt,
	}
}

// Reporter pushes throttled Tracker snapshots to a sink and supports an
// immediate out-of-band push triggered by the status signal.
type Reporter struct {
	tracker  *Tracker
	sink     SinkFunc
	interval time.Duration

	statusCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewReporter builds a Reporter that pushes a snapshot every interval.
func NewReporter(tracker *Tracker, sink SinkFunc, interval time.Duration) *Reporter {
	return &Reporter{
		tracker:  tracker,
		sink:     sink,
		interval: interval,
		statusCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the throttled reporting loop until Stop is called. Intended
// to be run in its own goroutine.
func (r *Reporter) Start() {
	defer close(r.doneCh)

	if r.sink == nil {
		<-r.stopCh
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sink(r.tracker.Snapshot())
		case <-r.statusCh:
			r.sink(r.tracker.Snapshot())
		}
	}
}

// RequestStatus triggers an immediate snapshot push, bypassing throttling.
// Safe to call from a signal handler goroutine.
func (r *Reporter) RequestStatus() {
	select {
	case r.statusCh <- struct{}{}:
	default:
		// a push is already pending; one is enough
	}
}

// Stop ends the reporting loop and blocks until it has exited.
func (r *Reporter) Stop() {
	close(r.stopCh)
	<-r.doneCh
}
