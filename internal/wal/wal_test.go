package wal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

func testHeader() model.WALHeader {
	return model.WALHeader{
		Version:   model.CurrentWALVersion,
		Mode:      model.ScanModeHybrid,
		Root:      "/videos",
		ExtsHash:  HashExtensions([]string{".mp4", ".mkv"}),
		StartedAt: time.Now().Unix(),
	}
}

func TestAppendAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal.jsonl")
	header := testHeader()

	w, err := New(path, header)
	require.NoError(t, err)

	require.NoError(t, w.Append(model.ScanResult{
		File:       model.NewVideoFile("/videos/a.mp4", 100),
		Status:     model.StatusHealthy,
		Depth:      model.DepthQuick,
		Confidence: 0.95,
	}))
	require.NoError(t, w.Append(model.ScanResult{
		File:       model.NewVideoFile("/videos/b.mp4", 200),
		Status:     model.StatusCorrupt,
		Depth:      model.DepthDeep,
		Confidence: 0.9,
		Error:      "moov atom not found",
	}))

	require.NoError(t, w.Finalize(model.WALTotals{Healthy: 1, Corrupt: 1}, time.Second))

	result, err := Load(path, header)
	require.NoError(t, err)
	require.True(t, result.Resumable)
	require.True(t, result.Complete)
	require.Len(t, result.Results, 2)
	require.Equal(t, model.StatusHealthy, result.Results["/videos/a.mp4"].Status)
	require.Equal(t, model.StatusCorrupt, result.Results["/videos/b.mp4"].Status)
}

func TestLoadMissingFileIsNotResumable(t *testing.T) {
	dir := t.TempDir()
	result, err := Load(filepath.Join(dir, "missing.wal.jsonl"), testHeader())
	require.NoError(t, err)
	require.False(t, result.Resumable)
}

func TestLoadHeaderMismatchIsNotResumable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal.jsonl")
	header := testHeader()

	w, err := New(path, header)
	require.NoError(t, err)
	require.NoError(t, w.Finalize(model.WALTotals{}, 0))

	other := header
	other.Root = "/elsewhere"

	result, err := Load(path, other)
	require.NoError(t, err)
	require.False(t, result.Resumable)
}

func TestDeepSupersedesQuickOnReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal.jsonl")
	header := testHeader()

	w, err := New(path, header)
	require.NoError(t, err)
	require.NoError(t, w.Append(model.ScanResult{
		File:   model.NewVideoFile("/videos/a.mp4", 100),
		Status: model.StatusSuspicious,
		Depth:  model.DepthQuick,
	}))
	require.NoError(t, w.Append(model.ScanResult{
		File:   model.NewVideoFile("/videos/a.mp4", 100),
		Status: model.StatusHealthy,
		Depth:  model.DepthDeep,
	}))
	require.NoError(t, w.Finalize(model.WALTotals{}, 0))

	result, err := Load(path, header)
	require.NoError(t, err)
	require.Equal(t, model.StatusHealthy, result.Results["/videos/a.mp4"].Status)
	require.Equal(t, model.DepthDeep, result.Results["/videos/a.mp4"].Depth)
}

func TestDiscardRemovesWALNotSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal.jsonl")
	header := testHeader()

	w, err := New(path, header)
	require.NoError(t, err)
	require.NoError(t, w.Append(model.ScanResult{
		File:   model.NewVideoFile("/videos/a.mp4", 100),
		Status: model.StatusHealthy,
		Depth:  model.DepthQuick,
	}))
	require.NoError(t, w.Discard())

	result, statErr := Load(path, header)
	require.NoError(t, statErr) // Load treats a missing file as not-resumable, not an error
	require.False(t, result.Resumable)

	require.FileExists(t, path+snapshotSuffix)
}
