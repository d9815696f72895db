package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

func filesNamed(names ...string) []model.VideoFile {
	files := make([]model.VideoFile, len(names))
	for i, n := range names {
		files[i] = model.NewVideoFile(n, 0)
	}
	return files
}

func TestPoolRunsAllJobs(t *testing.T) {
	p := New(4)
	files := filesNamed("a", "b", "c", "d", "e")

	var mu sync.Mutex
	var results []model.ScanResult

	err := p.Run(context.Background(), files, model.DepthQuick,
		func(ctx context.Context, f model.VideoFile, d model.ScanDepth) model.ScanResult {
			return model.ScanResult{File: f, Status: model.StatusHealthy, Depth: d}
		},
		func(r model.ScanResult) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
		},
	)

	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestPoolEnforcesConcurrencyBound(t *testing.T) {
	p := New(2)
	files := filesNamed("a", "b", "c", "d", "e", "f")

	var current, maxSeen int64

	err := p.Run(context.Background(), files, model.DepthQuick,
		func(ctx context.Context, f model.VideoFile, d model.ScanDepth) model.ScanResult {
			n := atomic.AddInt64(&current, 1)
			for {
				old := atomic.LoadInt64(&maxSeen)
				if n <= old || atomic.CompareAndSwapInt64(&maxSeen, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			return model.ScanResult{File: f, Status: model.StatusHealthy, Depth: d}
		},
		func(model.ScanResult) {},
	)

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&maxSeen), int64(2))
}

func TestPoolRecoversPanicAsErrorResult(t *testing.T) {
	p := New(1)
	files := filesNamed("a")

	var mu sync.Mutex
	var result model.ScanResult

	err := p.Run(context.Background(), files, model.DepthQuick,
		func(ctx context.Context, f model.VideoFile, d model.ScanDepth) model.ScanResult {
			panic("boom")
		},
		func(r model.ScanResult) {
			mu.Lock()
			defer mu.Unlock()
			result = r
		},
	)

	require.NoError(t, err)
	assert.Equal(t, model.StatusError, result.Status)
	assert.Contains(t, result.Error, "boom")
}

func TestPoolStopsSubmittingAfterCancel(t *testing.T) {
	p := New(1)
	files := filesNamed("a", "b", "c")

	ctx, cancel := context.WithCancel(context.Background())
	var launched int64

	_ = p.Run(ctx, files, model.DepthQuick,
		func(ctx context.Context, f model.VideoFile, d model.ScanDepth) model.ScanResult {
			atomic.AddInt64(&launched, 1)
			cancel()
			return model.ScanResult{File: f, Status: model.StatusHealthy, Depth: d}
		},
		func(model.ScanResult) {},
	)

	assert.LessOrEqual(t, atomic.LoadInt64(&launched), int64(2))
}
