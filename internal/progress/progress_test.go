package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

func TestTrackerCountersSumToProcessed(t *testing.T) {
	tr := NewTracker(4)
	tr.RecordResult(model.StatusHealthy)
	tr.RecordResult(model.StatusSuspicious)
	tr.RecordResult(model.StatusCorrupt)
	tr.RecordResult(model.StatusError)

	snap := tr.Snapshot()
	assert.Equal(t, 4, snap.Processed)
	assert.Equal(t, snap.Processed, snap.Healthy+snap.Suspicious+snap.Corrupt+snap.Errored)
}

func TestTrackerSnapshotIsDefensiveCopy(t *testing.T) {
	tr := NewTracker(1)
	snap := tr.Snapshot()
	tr.RecordResult(model.StatusHealthy)
	assert.Equal(t, 0, snap.Processed, "prior snapshot must not be mutated")
}

func TestReporterPushesOnInterval(t *testing.T) {
	tr := NewTracker(1)
	var mu sync.Mutex
	count := 0

	r := NewReporter(tr, func(model.ScanProgress) {
		mu.Lock()
		defer mu.Unlock()
		count++
	}, 5*time.Millisecond)

	go r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, count, 0)
}

func TestReporterRequestStatusIsImmediate(t *testing.T) {
	tr := NewTracker(1)
	pushed := make(chan struct{}, 1)

	r := NewReporter(tr, func(model.ScanProgress) {
		select {
		case pushed <- struct{}{}:
		default:
		}
	}, time.Hour)

	go r.Start()
	defer r.Stop()

	r.RequestStatus()

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("expected immediate status push")
	}
}
