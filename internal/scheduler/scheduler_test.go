package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
	"github.com/tdorsey/corruptvideofileinspector/internal/pool"
)

func newTestScheduler(job JobFunc) *Scheduler {
	return &Scheduler{
		Pool:         pool.New(4),
		Job:          job,
		Append:       func(model.ScanResult) error { return nil },
		RecordStart:  func(string) {},
		RecordResult: func(model.Status) {},
		SetPhase:     func(model.Phase) {},
	}
}

func TestSchedulerQuickModeSinglePass(t *testing.T) {
	s := newTestScheduler(func(ctx context.Context, f model.VideoFile, d model.ScanDepth) model.ScanResult {
		return model.ScanResult{File: f, Status: model.StatusHealthy, Depth: d}
	})

	files := []model.VideoFile{model.NewVideoFile("/b.mp4", 1), model.NewVideoFile("/a.mp4", 1)}
	results, err := s.Run(context.Background(), files, model.ScanModeQuick, nil)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "/a.mp4", results[0].File.Path)
	assert.Equal(t, "/b.mp4", results[1].File.Path)
	for _, r := range results {
		assert.Equal(t, model.DepthQuick, r.Depth)
	}
}

func TestSchedulerHybridEscalatesSuspiciousOnly(t *testing.T) {
	s := newTestScheduler(func(ctx context.Context, f model.VideoFile, d model.ScanDepth) model.ScanResult {
		if d == model.DepthQuick {
			switch f.Path {
			case "/healthy.mp4":
				return model.ScanResult{File: f, Status: model.StatusHealthy, Depth: d}
			case "/corrupt.mp4":
				return model.ScanResult{File: f, Status: model.StatusCorrupt, Depth: d}
			default:
				return model.ScanResult{File: f, Status: model.StatusSuspicious, Depth: d}
			}
		}
		return model.ScanResult{File: f, Status: model.StatusHealthy, Depth: d}
	})

	files := []model.VideoFile{
		model.NewVideoFile("/healthy.mp4", 1),
		model.NewVideoFile("/corrupt.mp4", 1),
		model.NewVideoFile("/suspicious.mp4", 1),
	}

	results, err := s.Run(context.Background(), files, model.ScanModeHybrid, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byPath := map[string]model.ScanResult{}
	for _, r := range results {
		byPath[r.File.Path] = r
	}

	assert.Equal(t, model.DepthQuick, byPath["/healthy.mp4"].Depth)
	assert.Equal(t, model.DepthQuick, byPath["/corrupt.mp4"].Depth)
	assert.Equal(t, model.DepthDeep, byPath["/suspicious.mp4"].Depth)
	assert.Equal(t, model.StatusHealthy, byPath["/suspicious.mp4"].Status)
}

func TestSchedulerResumeSkipsDeepCompletedFiles(t *testing.T) {
	called := false
	s := newTestScheduler(func(ctx context.Context, f model.VideoFile, d model.ScanDepth) model.ScanResult {
		called = true
		return model.ScanResult{File: f, Status: model.StatusHealthy, Depth: d}
	})

	files := []model.VideoFile{model.NewVideoFile("/a.mp4", 1)}
	resumed := map[string]model.WALEntry{
		"/a.mp4": {Path: "/a.mp4", Status: model.StatusHealthy, Depth: model.DepthDeep, Confidence: 0.99},
	}

	results, err := s.Run(context.Background(), files, model.ScanModeHybrid, resumed)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, called, "resumed deep result must not be re-run")
	assert.Equal(t, model.StatusHealthy, results[0].Status)
}

func TestSchedulerResumeRequeuesSuspiciousQuickForPass2(t *testing.T) {
	var ranDepths []model.ScanDepth
	s := newTestScheduler(func(ctx context.Context, f model.VideoFile, d model.ScanDepth) model.ScanResult {
		ranDepths = append(ranDepths, d)
		return model.ScanResult{File: f, Status: model.StatusHealthy, Depth: d}
	})

	files := []model.VideoFile{model.NewVideoFile("/a.mp4", 1)}
	resumed := map[string]model.WALEntry{
		"/a.mp4": {Path: "/a.mp4", Status: model.StatusSuspicious, Depth: model.DepthQuick},
	}

	_, err := s.Run(context.Background(), files, model.ScanModeHybrid, resumed)
	require.NoError(t, err)
	require.Len(t, ranDepths, 1)
	assert.Equal(t, model.DepthDeep, ranDepths[0], "must go straight to pass 2, not re-run pass 1")
}
