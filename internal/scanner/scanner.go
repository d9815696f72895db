// Package scanner provides the top-level Scan Controller: it validates
// input, wires Discovery, the WAL, the Scheduler, the Worker Pool, and
// Progress together, and returns a ScanSummary even on interrupt or error.
package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/tdorsey/corruptvideofileinspector/internal/classifier"
	"github.com/tdorsey/corruptvideofileinspector/internal/discovery"
	"github.com/tdorsey/corruptvideofileinspector/internal/inspector"
	"github.com/tdorsey/corruptvideofileinspector/internal/model"
	"github.com/tdorsey/corruptvideofileinspector/internal/obslog"
	"github.com/tdorsey/corruptvideofileinspector/internal/pool"
	"github.com/tdorsey/corruptvideofileinspector/internal/progress"
	"github.com/tdorsey/corruptvideofileinspector/internal/scanerr"
	"github.com/tdorsey/corruptvideofileinspector/internal/scheduler"
	"github.com/tdorsey/corruptvideofileinspector/internal/wal"
)

// progressInterval throttles ProgressSink delivery.
const progressInterval = 500 * time.Millisecond

// earlyDriverFailureThreshold is how many consecutive DriverErrors in the
// first few job completions escalate to a fatal "inspector unavailable".
const earlyDriverFailureThreshold = 3

// Params is the resolved, effective scan configuration for one run —
// the core's ConfigurationProvider, already read by the caller.
type Params struct {
	Root          string
	Mode          model.ScanMode
	Recursive     bool
	Extensions    []string
	Workers       int
	QuickTimeout  time.Duration
	DeepTimeout   time.Duration
	QuickDuration int
	InspectorPath string
	ResumeEnabled bool
	OutputDir     string
	ContentProbe  discovery.ContentProbeFunc
	SnapshotPath  string // optional; when set, a human-readable YAML dump of the results is written here
}

// Collaborators are the operator-supplied sinks consumed by the core.
type Collaborators struct {
	ProgressSink progress.SinkFunc
	ResultSink   func(model.ScanResult)
	SummarySink  func(model.ScanSummary)
}

// Controller is the Scan entry point. It holds no state between runs.
type Controller struct{}

// NewController builds a Controller.
func NewController() *Controller { return &Controller{} }

// Scan runs one complete scan to completion, interruption, or fatal error.
// It always returns a ScanSummary (marked Incomplete on cancellation) and
// always invokes collab.SummarySink exactly once before returning.
func (c *Controller) Scan(ctx context.Context, params Params, collab Collaborators) (model.ScanSummary, error) {
	startedAt := time.Now()
	summary := model.ScanSummary{
		RunID:     uuid.NewString(),
		Directory: params.Root,
		Mode:      params.Mode,
		StartedAt: startedAt,
	}

	info, err := os.Stat(params.Root)
	if err != nil {
		return c.fail(summary, collab, scanerr.New(scanerr.KindInput, "scan root does not exist", err))
	}
	if !info.IsDir() {
		return c.fail(summary, collab, scanerr.New(scanerr.KindInput, "scan root is not a directory", nil))
	}

	absRoot, err := filepath.Abs(params.Root)
	if err != nil {
		absRoot = params.Root
	}

	header := model.WALHeader{
		Version:    model.CurrentWALVersion,
		Mode:       params.Mode,
		Root:       absRoot,
		Extensions: params.Extensions,
		ExtsHash:   wal.HashExtensions(params.Extensions),
		StartedAt:  startedAt.Unix(),
	}
	walPath := wal.PathFor(params.OutputDir, params.Mode, params.Extensions)

	resumedEntries := map[string]model.WALEntry{}
	resumed := false

	if params.ResumeEnabled {
		loadResult, err := wal.Load(walPath, header)
		if err != nil {
			return c.fail(summary, collab, err)
		}
		if loadResult.Resumable {
			resumed = true
			resumedEntries = loadResult.Results
			if loadResult.Complete {
				return c.shortCircuitComplete(summary, collab, resumedEntries, startedAt)
			}
		}
	}

	writer, err := wal.New(walPath, header)
	if err != nil {
		return c.fail(summary, collab, err)
	}

	tracker := progress.NewTracker(0)
	reporter := progress.NewReporter(tracker, collab.ProgressSink, progressInterval)
	go reporter.Start()

	runCtx, sigHandle := progress.InstallSignals(ctx, reporter.RequestStatus)
	defer sigHandle.Restore()
	defer reporter.Stop()

	files, err := discovery.Walk(runCtx, params.Root, discovery.Options{
		Recursive:    params.Recursive,
		Extensions:   params.Extensions,
		ContentProbe: params.ContentProbe,
		Warn: func(path, message string) {
			obslog.Log.Warn().Str("path", path).Msg(message)
		},
	})
	if err != nil {
		finalizeErr := writer.Finalize(model.WALTotals{}, time.Since(startedAt))
		return c.fail(summary, collab, combineErrors(scanerr.New(scanerr.KindInput, "file discovery failed", err), finalizeErr))
	}

	tracker.SetTotal(len(files))

	driver := inspector.NewDriver(params.InspectorPath)
	circuit := inspector.NewCircuit(earlyDriverFailureThreshold, 30*time.Second)
	detector := &earlyFailureDetector{threshold: earlyDriverFailureThreshold}

	sched := &scheduler.Scheduler{
		Pool:         pool.New(params.Workers),
		Job:          jobRunner(driver, circuit, detector, params),
		Append:       writer.Append,
		RecordStart:  tracker.RecordStart,
		RecordResult: tracker.RecordResult,
		SetPhase:     tracker.SetPhase,
	}

	results, runErr := sched.Run(runCtx, files, params.Mode, resumedEntries)

	totals := totalsFromResults(results)

	var finalizeErr error
	if params.ResumeEnabled {
		finalizeErr = writer.Finalize(totals, time.Since(startedAt))
	} else {
		finalizeErr = writer.Discard()
	}

	for _, r := range results {
		if collab.ResultSink != nil {
			collab.ResultSink(r)
		}
	}

	if params.SnapshotPath != "" {
		if err := wal.DumpSnapshotYAML(params.SnapshotPath, header, entriesFromResults(results)); err != nil {
			obslog.Log.Warn().Err(err).Str("path", params.SnapshotPath).Msg("failed to write yaml results snapshot")
		}
	}

	summary.Healthy = totals.Healthy
	summary.Suspicious = totals.Suspicious
	summary.Corrupt = totals.Corrupt
	summary.Errored = totals.Error
	summary.Processed = len(results)
	summary.Total = len(files)
	summary.Resumed = resumed
	summary.ScanTime = time.Since(startedAt)
	summary.EndedAt = time.Now()

	if detector.escalated() {
		return c.fail(summary, collab, combineErrors(scanerr.New(scanerr.KindDriver, "inspector unavailable: first jobs all failed to launch", nil), finalizeErr))
	}

	if errors.Is(runErr, context.Canceled) || errors.Is(runCtx.Err(), context.Canceled) {
		summary.Incomplete = true
		if collab.SummarySink != nil {
			collab.SummarySink(summary)
		}
		return summary, nil
	}

	if runErr != nil {
		return c.fail(summary, collab, combineErrors(runErr, finalizeErr))
	}

	if finalizeErr != nil {
		return c.fail(summary, collab, finalizeErr)
	}

	if collab.SummarySink != nil {
		collab.SummarySink(summary)
	}
	return summary, nil
}

func (c *Controller) fail(summary model.ScanSummary, collab Collaborators, err error) (model.ScanSummary, error) {
	summary.Incomplete = true
	summary.EndedAt = time.Now()
	if collab.SummarySink != nil {
		collab.SummarySink(summary)
	}
	return summary, err
}

func (c *Controller) shortCircuitComplete(summary model.ScanSummary, collab Collaborators, entries map[string]model.WALEntry, startedAt time.Time) (model.ScanSummary, error) {
	totals := model.WALTotals{}
	for _, e := range entries {
		switch e.Status {
		case model.StatusHealthy:
			totals.Healthy++
		case model.StatusSuspicious:
			totals.Suspicious++
		case model.StatusCorrupt:
			totals.Corrupt++
		case model.StatusError:
			totals.Error++
		}
		if collab.ResultSink != nil {
			collab.ResultSink(model.ScanResult{
				File:       model.NewVideoFile(e.Path, 0),
				Status:     e.Status,
				Depth:      e.Depth,
				Confidence: e.Confidence,
				Diagnostic: e.Reason,
			})
		}
	}

	summary.Healthy = totals.Healthy
	summary.Suspicious = totals.Suspicious
	summary.Corrupt = totals.Corrupt
	summary.Errored = totals.Error
	summary.Processed = len(entries)
	summary.Total = len(entries)
	summary.Resumed = true
	summary.ScanTime = time.Since(startedAt)
	summary.EndedAt = time.Now()

	if collab.SummarySink != nil {
		collab.SummarySink(summary)
	}
	return summary, nil
}

// jobRunner builds the per-job closure that drives the Driver and
// Classifier, folding any DriverError into an error-status ScanResult
// rather than letting it escape the pool.
func jobRunner(driver *inspector.Driver, circuit *inspector.Circuit, detector *earlyFailureDetector, params Params) scheduler.JobFunc {
	return func(ctx context.Context, file model.VideoFile, depth model.ScanDepth) model.ScanResult {
		if !circuit.Allow() {
			return model.ScanResult{File: file, Status: model.StatusError, Depth: depth, Error: "inspector circuit open"}
		}

		cmd := inspector.BuildCommand(file.Path, depth, params.QuickDuration)
		timeout := timeoutFor(depth, params)

		outcome, err := driver.Run(ctx, cmd, timeout)
		if err != nil {
			circuit.RecordFailure()
			detector.record(true)
			return model.ScanResult{File: file, Status: model.StatusError, Depth: depth, Error: err.Error()}
		}
		circuit.RecordSuccess()
		detector.record(false)

		cr := classifier.Classify(outcome.ExitCode, outcome.Stderr, depth, outcome.TimedOut)
		return model.ScanResult{
			File:       file,
			Status:     cr.Status,
			Depth:      depth,
			Elapsed:    outcome.Elapsed,
			Confidence: cr.Confidence,
			Diagnostic: outcome.Stderr,
			Error:      classifierErrorText(cr),
		}
	}
}

func classifierErrorText(cr model.ClassifyResult) string {
	if cr.Status == model.StatusError {
		return cr.Reason
	}
	return ""
}

func timeoutFor(depth model.ScanDepth, params Params) time.Duration {
	switch depth {
	case model.DepthQuick:
		return params.QuickTimeout
	case model.DepthFull:
		return 0
	default:
		return params.DeepTimeout
	}
}

// earlyFailureDetector escalates to a fatal condition only if the first
// earlyDriverFailureThreshold job completions are *all* DriverErrors; any
// non-error completion disarms it for the rest of the run.
type earlyFailureDetector struct {
	mu          sync.Mutex
	threshold   int
	consecutive int
	disarmed    bool
	tripped     bool
}

func (d *earlyFailureDetector) record(isDriverError bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disarmed {
		return
	}
	if isDriverError {
		d.consecutive++
		if d.consecutive >= d.threshold {
			d.tripped = true
			d.disarmed = true
		}
		return
	}
	d.disarmed = true
}

func (d *earlyFailureDetector) escalated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tripped
}

func totalsFromResults(results []model.ScanResult) model.WALTotals {
	var t model.WALTotals
	for _, r := range results {
		switch r.Status {
		case model.StatusHealthy:
			t.Healthy++
		case model.StatusSuspicious:
			t.Suspicious++
		case model.StatusCorrupt:
			t.Corrupt++
		case model.StatusError:
			t.Error++
		}
	}
	return t
}

func entriesFromResults(results []model.ScanResult) map[string]model.WALEntry {
	entries := make(map[string]model.WALEntry, len(results))
	for _, r := range results {
		reason := r.Error
		if reason == "" {
			reason = r.Diagnostic
		}
		entries[r.File.Path] = model.WALEntry{
			Path:       r.File.Path,
			Status:     r.Status,
			Depth:      r.Depth,
			Elapsed:    r.Elapsed.Seconds(),
			Confidence: r.Confidence,
			Reason:     reason,
		}
	}
	return entries
}

func combineErrors(errs ...error) error {
	var merged *multierror.Error
	for _, e := range errs {
		if e != nil {
			merged = multierror.Append(merged, e)
		}
	}
	if merged == nil {
		return nil
	}
	if len(merged.Errors) == 1 {
		return merged.Errors[0]
	}
	return merged
}
