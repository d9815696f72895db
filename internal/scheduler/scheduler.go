// Package scheduler orchestrates one or two Worker Pool passes over a
// discovered file list, implementing the hybrid quick-then-deep escalation
// and the resume-aware pass-skipping rules.
package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
	"github.com/tdorsey/corruptvideofileinspector/internal/pool"
)

// JobFunc runs the Inspector Driver and Classifier for one file at one
// depth, already folding any driver failure into an error-status
// ScanResult. Supplied by the Controller, which owns the quick/deep/full
// timeout values.
type JobFunc func(ctx context.Context, file model.VideoFile, depth model.ScanDepth) model.ScanResult

// AppendFunc persists one ScanResult to the resume log before the
// scheduler considers the job complete.
type AppendFunc func(model.ScanResult) error

// Scheduler drives a Pool through the passes required by a ScanMode.
type Scheduler struct {
	Pool         *pool.Pool
	Job          JobFunc
	Append       AppendFunc
	RecordStart  func(path string)
	RecordResult func(status model.Status)
	SetPhase     func(model.Phase)
}

// Run executes the passes required by mode over files, skipping work
// already present in resumed at a sufficient depth, and returns the final
// per-path results sorted by path.
func (s *Scheduler) Run(ctx context.Context, files []model.VideoFile, mode model.ScanMode, resumed map[string]model.WALEntry) ([]model.ScanResult, error) {
	finals := make(map[string]model.ScanResult)
	var mu sync.Mutex

	pass1Files, directPass2Files := s.planResume(files, mode, resumed, finals)

	if mode != model.ScanModeHybrid {
		depth := depthForMode(mode)
		s.setPhase(phaseForDepth(depth))

		err := s.Pool.Run(ctx, pass1Files, depth, s.wrapJob(), func(r model.ScanResult) {
			mu.Lock()
			finals[r.File.Path] = r
			mu.Unlock()
		})
		if err != nil {
			return sortedFinals(finals), err
		}
	} else {
		s.setPhase(model.PhaseQuickScan)

		pass2Candidates := append([]model.VideoFile(nil), directPass2Files...)

		err := s.Pool.Run(ctx, pass1Files, model.DepthQuick, s.wrapJob(), func(r model.ScanResult) {
			mu.Lock()
			defer mu.Unlock()
			if needsDeepFollowUp(r.Status) {
				pass2Candidates = append(pass2Candidates, r.File)
			} else {
				finals[r.File.Path] = r
			}
		})
		if err != nil {
			return sortedFinals(finals), err
		}

		if ctx.Err() == nil && len(pass2Candidates) > 0 {
			s.setPhase(model.PhaseDeepScan)

			err = s.Pool.Run(ctx, pass2Candidates, model.DepthDeep, s.wrapJob(), func(r model.ScanResult) {
				mu.Lock()
				finals[r.File.Path] = r
				mu.Unlock()
			})
			if err != nil {
				return sortedFinals(finals), err
			}
		}
	}

	return sortedFinals(finals), nil
}

// needsDeepFollowUp reports whether a quick-depth result must be escalated
// to a deep pass in hybrid mode: suspicious results and quick-depth driver
// errors both get one more chance at a full read.
func needsDeepFollowUp(status model.Status) bool {
	return status == model.StatusSuspicious || status == model.StatusError
}

// planResume partitions files into those already satisfied by a resumed
// WAL entry (written directly into finals), those that must run pass 1,
// and — for hybrid mode only — those whose prior quick result means they
// should be submitted straight to pass 2, skipping pass 1 entirely.
func (s *Scheduler) planResume(
	files []model.VideoFile,
	mode model.ScanMode,
	resumed map[string]model.WALEntry,
	finals map[string]model.ScanResult,
) (pass1 []model.VideoFile, directPass2 []model.VideoFile) {
	for _, f := range files {
		entry, ok := resumed[f.Path]
		if !ok {
			pass1 = append(pass1, f)
			continue
		}

		if mode == model.ScanModeHybrid {
			switch {
			case entry.Depth == model.DepthDeep || entry.Depth == model.DepthFull:
				finals[f.Path] = entryToResult(f, entry)
			case needsDeepFollowUp(entry.Status):
				directPass2 = append(directPass2, f)
			default:
				finals[f.Path] = entryToResult(f, entry)
			}
			continue
		}

		target := depthForMode(mode)
		if depthRank(entry.Depth) >= depthRank(target) {
			finals[f.Path] = entryToResult(f, entry)
		} else {
			pass1 = append(pass1, f)
		}
	}
	return pass1, directPass2
}

// wrapJob records progress start, runs the job, appends the result to the
// WAL, and updates progress counters — in that order, per the
// append-before-count-before-callback ordering rule.
func (s *Scheduler) wrapJob() pool.JobFunc {
	return func(ctx context.Context, f model.VideoFile, depth model.ScanDepth) model.ScanResult {
		s.RecordStart(f.Path)

		result := s.Job(ctx, f, depth)

		if err := s.Append(result); err != nil {
			result.Status = model.StatusError
			result.Error = err.Error()
		}

		s.RecordResult(result.Status)
		return result
	}
}

func (s *Scheduler) setPhase(phase model.Phase) {
	if s.SetPhase != nil {
		s.SetPhase(phase)
	}
}

func depthForMode(mode model.ScanMode) model.ScanDepth {
	switch mode {
	case model.ScanModeQuick:
		return model.DepthQuick
	case model.ScanModeFull:
		return model.DepthFull
	default: // deep
		return model.DepthDeep
	}
}

func phaseForDepth(depth model.ScanDepth) model.Phase {
	if depth == model.DepthQuick {
		return model.PhaseQuickScan
	}
	return model.PhaseDeepScan
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

func entryToResult(f model.VideoFile, entry model.WALEntry) model.ScanResult {
	return model.ScanResult{
		File:       f,
		Status:     entry.Status,
		Depth:      entry.Depth,
		Confidence: entry.Confidence,
		Diagnostic: entry.Reason,
	}
}

func sortedFinals(finals map[string]model.ScanResult) []model.ScanResult {
	results := make([]model.ScanResult, 0, len(finals))
	for _, r := range finals {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File.Path < results[j].File.Path })
	return results
}
