package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

// writeFakeInspector writes a shell script standing in for ffmpeg: it
// exits 0 with empty stderr for every input, which is all the empty-root
// and healthy-file scenarios below need.
func writeFakeInspector(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-ffmpeg.sh")
	script := "#!/bin/sh\nexit 0\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeVideoFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
}

func baseParams(t *testing.T, root string) Params {
	t.Helper()
	binDir := t.TempDir()
	return Params{
		Root:          root,
		Mode:          model.ScanModeQuick,
		Recursive:     true,
		Extensions:    []string{".mp4"},
		Workers:       2,
		QuickTimeout:  2 * time.Second,
		DeepTimeout:   2 * time.Second,
		QuickDuration: 5,
		InspectorPath: writeFakeInspector(t, binDir),
		ResumeEnabled: true,
		OutputDir:     t.TempDir(),
	}
}

func TestScanEmptyRootS1(t *testing.T) {
	root := t.TempDir()
	params := baseParams(t, root)

	var resultCalls int
	var mu sync.Mutex

	c := NewController()
	summary, err := c.Scan(context.Background(), params, Collaborators{
		ResultSink: func(model.ScanResult) {
			mu.Lock()
			resultCalls++
			mu.Unlock()
		},
	})

	require.NoError(t, err)
	require.Equal(t, 0, summary.Total)
	require.Equal(t, 0, summary.Processed)
	require.Equal(t, 0, resultCalls)
}

func TestScanThreeHealthyFilesQuickS2(t *testing.T) {
	root := t.TempDir()
	writeVideoFile(t, filepath.Join(root, "a.mp4"))
	writeVideoFile(t, filepath.Join(root, "b.mp4"))
	writeVideoFile(t, filepath.Join(root, "c.mp4"))

	params := baseParams(t, root)

	var paths []string
	var mu sync.Mutex

	c := NewController()
	summary, err := c.Scan(context.Background(), params, Collaborators{
		ResultSink: func(r model.ScanResult) {
			mu.Lock()
			paths = append(paths, r.File.Path)
			mu.Unlock()
			require.Equal(t, model.StatusHealthy, r.Status)
			require.GreaterOrEqual(t, r.Confidence, 0.9)
		},
	})

	require.NoError(t, err)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 3, summary.Healthy)
	require.Len(t, paths, 3)
}

func TestScanWritesYAMLSnapshotWhenConfigured(t *testing.T) {
	root := t.TempDir()
	writeVideoFile(t, filepath.Join(root, "a.mp4"))

	params := baseParams(t, root)
	params.SnapshotPath = filepath.Join(t.TempDir(), "snapshot.yaml")

	c := NewController()
	_, err := c.Scan(context.Background(), params, Collaborators{})
	require.NoError(t, err)
	require.FileExists(t, params.SnapshotPath)
}

func TestScanInvalidRootIsInputError(t *testing.T) {
	params := baseParams(t, filepath.Join(t.TempDir(), "does-not-exist"))

	c := NewController()
	summary, err := c.Scan(context.Background(), params, Collaborators{})

	require.Error(t, err)
	require.True(t, summary.Incomplete)
}

func TestScanResumeSkipsCompletedFiles(t *testing.T) {
	root := t.TempDir()
	writeVideoFile(t, filepath.Join(root, "a.mp4"))
	writeVideoFile(t, filepath.Join(root, "b.mp4"))

	params := baseParams(t, root)

	c := NewController()
	first, err := c.Scan(context.Background(), params, Collaborators{})
	require.NoError(t, err)
	require.Equal(t, 2, first.Processed)

	second, err := c.Scan(context.Background(), params, Collaborators{})
	require.NoError(t, err)
	require.True(t, second.Resumed)
	require.Equal(t, 2, second.Processed)
}
