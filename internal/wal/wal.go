// Package wal implements the scanning engine's resume log: a crash-safe,
// line-delimited JSON append log that lets a subsequent run with identical
// parameters skip already-completed files.
package wal

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
	"github.com/tdorsey/corruptvideofileinspector/internal/scanerr"
)

// snapshotSuffix names the sidecar "results" file that receives the same
// entries as the main WAL but is never truncated by Discard.
const snapshotSuffix = ".results.jsonl"

// lockSuffix names the sidecar lock file held for the lifetime of an open WAL.
const lockSuffix = ".lock"

// HashExtensions returns a short, stable hash of a sorted extension set,
// used to name the WAL file deterministically from (root, mode, extensions).
func HashExtensions(extensions []string) string {
	sorted := append([]string(nil), extensions...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])[:12]
}

// PathFor computes the deterministic WAL file path for a given scan root,
// output directory, mode and extension set.
func PathFor(outputDir string, mode model.ScanMode, extensions []string) string {
	name := fmt.Sprintf("cviscan-%s-%s.wal.jsonl", mode, HashExtensions(extensions))
	return filepath.Join(outputDir, name)
}

// LoadResult is the outcome of attempting to resume from an existing WAL.
type LoadResult struct {
	Resumable bool
	Complete  bool
	Results   map[string]model.WALEntry // keyed by path, latest/deepest entry wins
}

// Load opens path if present and checks its header against the current
// run's parameters. A header mismatch, or a missing file, yields a
// non-resumable result rather than an error.
func Load(path string, header model.WALHeader) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &LoadResult{Resumable: false, Results: map[string]model.WALEntry{}}, nil
		}
		return nil, scanerr.New(scanerr.KindWAL, "failed to open resume log", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		return &LoadResult{Resumable: false, Results: map[string]model.WALEntry{}}, nil
	}

	var gotHeader model.WALHeader
	if err := json.Unmarshal(scanner.Bytes(), &gotHeader); err != nil {
		return &LoadResult{Resumable: false, Results: map[string]model.WALEntry{}}, nil
	}

	if !headersMatch(gotHeader, header) {
		return &LoadResult{Resumable: false, Results: map[string]model.WALEntry{}}, nil
	}

	results := make(map[string]model.WALEntry)
	complete := false

	for scanner.Scan() {
		line := scanner.Bytes()

		var footer model.WALFooter
		if json.Unmarshal(line, &footer) == nil && footer.CompletedAt != 0 {
			complete = true
			continue
		}

		var entry model.WALEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if existing, ok := results[entry.Path]; ok && depthRank(existing.Depth) > depthRank(entry.Depth) {
			continue
		}
		results[entry.Path] = entry
	}

	if err := scanner.Err(); err != nil {
		return nil, scanerr.New(scanerr.KindWAL, "failed to read resume log", err)
	}

	return &LoadResult{Resumable: true, Complete: complete, Results: results}, nil
}

func headersMatch(a, b model.WALHeader) bool {
	if a.Root != b.Root || a.Mode != b.Mode || a.ExtsHash != b.ExtsHash {
		return false
	}
	return true
}

func depthRank(d model.ScanDepth) int {
	switch d {
	case model.DepthFull:
		return 2
	case model.DepthDeep:
		return 1
	default:
		return 0
	}
}

type appendRequest struct {
	entry model.WALEntry
	errCh chan error
}

// WAL is an open, append-only resume log. Appends are serialized through a
// single writer goroutine fed by a channel, so concurrent workers never
// race on the underlying file or its fsync ordering.
type WAL struct {
	path         string
	snapshotPath string
	lockPath     string

	file         *os.File
	snapshotFile *os.File

	reqCh  chan appendRequest
	doneCh chan struct{}
}

// New creates path (and its sidecar snapshot/lock files), writes the
// header line, and starts the writer goroutine.
func New(path string, header model.WALHeader) (*WAL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, scanerr.New(scanerr.KindWAL, "failed to create resume log directory", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, scanerr.New(scanerr.KindWAL, "failed to create resume log", err)
	}

	snapshotPath := path + snapshotSuffix
	snap, err := os.Create(snapshotPath)
	if err != nil {
		_ = f.Close()
		return nil, scanerr.New(scanerr.KindWAL, "failed to create results snapshot", err)
	}

	lockPath := path + lockSuffix
	if lf, err := os.Create(lockPath); err == nil {
		_ = lf.Close()
	}

	headerLine, err := json.Marshal(header)
	if err != nil {
		_ = f.Close()
		_ = snap.Close()
		return nil, scanerr.New(scanerr.KindWAL, "failed to encode resume log header", err)
	}

	if err := writeLineSynced(f, headerLine); err != nil {
		_ = f.Close()
		_ = snap.Close()
		return nil, scanerr.New(scanerr.KindWAL, "failed to write resume log header", err)
	}
	if err := writeLine(snap, headerLine); err != nil {
		_ = f.Close()
		_ = snap.Close()
		return nil, scanerr.New(scanerr.KindWAL, "failed to write results snapshot header", err)
	}

	w := &WAL{
		path:         path,
		snapshotPath: snapshotPath,
		lockPath:     lockPath,
		file:         f,
		snapshotFile: snap,
		reqCh:        make(chan appendRequest),
		doneCh:       make(chan struct{}),
	}
	go w.writeLoop()
	return w, nil
}

func (w *WAL) writeLoop() {
	defer close(w.doneCh)
	for req := range w.reqCh {
		req.errCh <- w.writeEntry(req.entry)
	}
}

func (w *WAL) writeEntry(entry model.WALEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return scanerr.New(scanerr.KindWAL, "failed to encode resume log entry", err)
	}
	if err := writeLineSynced(w.file, line); err != nil {
		return scanerr.New(scanerr.KindWAL, "failed to append resume log entry", err)
	}
	if err := writeLine(w.snapshotFile, line); err != nil {
		return scanerr.New(scanerr.KindWAL, "failed to append results snapshot entry", err)
	}
	return nil
}

// Append converts result into a WALEntry and writes it durably before
// returning. Safe for concurrent use by multiple workers.
func (w *WAL) Append(result model.ScanResult) error {
	entry := model.WALEntry{
		Path:       result.File.Path,
		Status:     result.Status,
		Depth:      result.Depth,
		Elapsed:    result.Elapsed.Seconds(),
		Confidence: result.Confidence,
		Reason:     result.Error,
	}
	if entry.Reason == "" {
		entry.Reason = result.Diagnostic
	}

	errCh := make(chan error, 1)
	w.reqCh <- appendRequest{entry: entry, errCh: errCh}
	return <-errCh
}

// Finalize writes the terminal footer line, removes the lock sidecar, and
// closes both files. The results snapshot is left in place.
func (w *WAL) Finalize(totals model.WALTotals, scanTime time.Duration) error {
	close(w.reqCh)
	<-w.doneCh

	footer := model.WALFooter{
		CompletedAt: time.Now().Unix(),
		Totals:      totals,
		ScanTime:    scanTime.Seconds(),
	}
	line, err := json.Marshal(footer)
	if err != nil {
		return scanerr.New(scanerr.KindWAL, "failed to encode resume log footer", err)
	}
	if err := writeLineSynced(w.file, line); err != nil {
		return scanerr.New(scanerr.KindWAL, "failed to write resume log footer", err)
	}
	_ = writeLine(w.snapshotFile, line)

	_ = w.file.Close()
	_ = w.snapshotFile.Close()
	_ = os.Remove(w.lockPath)
	return nil
}

// Discard removes the main WAL file (but not the results snapshot) and
// closes any open handles. The Controller calls it in place of Finalize
// whenever resume is disabled, whether or not the scan completed.
func (w *WAL) Discard() error {
	close(w.reqCh)
	<-w.doneCh

	_ = w.file.Close()
	_ = w.snapshotFile.Close()
	_ = os.Remove(w.lockPath)
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return scanerr.New(scanerr.KindWAL, "failed to discard resume log", err)
	}
	return nil
}

func writeLine(f *os.File, line []byte) error {
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

func writeLineSynced(f *os.File, line []byte) error {
	if err := writeLine(f, line); err != nil {
		return err
	}
	return f.Sync()
}
