// Command cviscan is the terminal front end for the corrupt video
// scanning engine: it loads configuration, wires console collaborators,
// and runs one scan to completion or interruption.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tdorsey/corruptvideofileinspector/internal/config"
	"github.com/tdorsey/corruptvideofileinspector/internal/discovery"
	"github.com/tdorsey/corruptvideofileinspector/internal/model"
	"github.com/tdorsey/corruptvideofileinspector/internal/obslog"
	"github.com/tdorsey/corruptvideofileinspector/internal/scanner"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cviscan: configuration error: %v\n", err)
		return 2
	}

	obslog.Init(cfg.Logging.Level, cfg.Logging.Pretty)

	mode, err := model.ParseScanMode(cfg.Scan.Mode)
	if err != nil {
		obslog.Log.Error().Err(err).Msg("invalid scan mode")
		return 2
	}

	params := scanner.Params{
		Root:          cfg.Scan.Root,
		Mode:          mode,
		Recursive:     cfg.Scan.Recursive,
		Extensions:    cfg.Scan.Extensions,
		Workers:       cfg.Scan.Workers,
		QuickTimeout:  cfg.Scan.QuickTimeout,
		DeepTimeout:   cfg.Scan.DeepTimeout,
		QuickDuration: cfg.Scan.QuickDuration,
		InspectorPath: cfg.Scan.InspectorPath,
		ResumeEnabled: cfg.Scan.ResumeEnabled,
		OutputDir:     cfg.Scan.OutputDir,
		SnapshotPath:  cfg.Scan.SnapshotPath,
	}
	if cfg.Scan.ContentProbe {
		params.ContentProbe = discovery.NewFFprobeContentProbe(cfg.Scan.ProbePath)
	}

	collab := scanner.Collaborators{
		ProgressSink: func(p model.ScanProgress) {
			obslog.Log.Info().
				Int("processed", p.Processed).
				Int("total", p.Total).
				Str("phase", string(p.Phase)).
				Str("current_file", p.CurrentFile).
				Msg("scan progress")
		},
		ResultSink: func(r model.ScanResult) {
			obslog.Log.Debug().
				Str("path", r.File.Path).
				Str("status", string(r.Status)).
				Str("depth", string(r.Depth)).
				Float64("confidence", r.Confidence).
				Msg("file classified")
		},
		SummarySink: func(s model.ScanSummary) {
			printSummary(s)
		},
	}

	ctrl := scanner.NewController()
	summary, err := ctrl.Scan(context.Background(), params, collab)
	if err != nil {
		obslog.Log.Error().Err(err).Msg("scan failed")
		if summary.Incomplete {
			return 1
		}
		return 3
	}

	if summary.Incomplete {
		return 1
	}
	if summary.Corrupt > 0 {
		return 4
	}
	return 0
}

// printSummary writes a final human-readable line, reproducing the
// original CLI's end-of-scan summary without building a full report
// renderer.
func printSummary(s model.ScanSummary) {
	status := "complete"
	if s.Incomplete {
		status = "incomplete"
	}
	fmt.Printf(
		"scan %s: %s — %d/%d files (healthy=%d suspicious=%d corrupt=%d error=%d) in %s\n",
		s.RunID, status, s.Processed, s.Total, s.Healthy, s.Suspicious, s.Corrupt, s.Errored, s.ScanTime,
	)
}
