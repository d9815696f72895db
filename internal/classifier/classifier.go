// Package classifier maps a raw inspector outcome to a corruption verdict.
// Classify is a pure function: no I/O, no clock, no logger — the same
// inputs always produce the same output.
package classifier

import (
	"strings"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

// hardIndicators are substrings whose presence in stderr is conclusive
// evidence of corruption. Checked in listed order; the first match sets
// the reason.
var hardIndicators = []string{
	"invalid data found",
	"moov atom not found",
	"invalid nal unit size",
	"error while decoding",
	"decode_slice_header error",
	"truncated",
	"malformed",
	"header missing",
	"no video found",
}

// softIndicators are substrings that suggest a problem without being
// conclusive on their own.
var softIndicators = []string{
	"non-monotonous dts",
	"non-monotonic timestamps",
	"concealing errors",
	"missing reference picture",
	"frame corruption",
}

const (
	confidenceQuickHealthy       = 0.95
	confidenceDeepHealthy        = 0.99
	confidenceQuickHardLow       = 0.85
	confidenceQuickHardHigh      = 0.95
	confidenceQuickSoftLow       = 0.5
	confidenceQuickSoftHigh      = 0.7
	confidenceQuickTimeout       = 0.4
	confidenceDeepCorruptLow     = 0.8
	confidenceDeepCorruptHigh    = 0.95
	confidenceDeepTimeoutCorrupt = 0.7
)

// Classify maps one Inspector outcome to a status, confidence and reason.
// depth must be quick, deep, or full; full is treated identically to deep
// except it is never timed out by the caller.
func Classify(exitCode int, stderr string, depth model.ScanDepth, timedOut bool) model.ClassifyResult {
	if depth == model.DepthQuick {
		return classifyQuick(exitCode, stderr, timedOut)
	}
	return classifyDeep(exitCode, stderr, timedOut)
}

func classifyQuick(exitCode int, stderr string, timedOut bool) model.ClassifyResult {
	if timedOut {
		return model.ClassifyResult{
			Status:     model.StatusSuspicious,
			Confidence: confidenceQuickTimeout,
			Reason:     "quick scan timed out",
		}
	}

	lower := strings.ToLower(stderr)

	if exitCode == 0 {
		if strings.TrimSpace(stderr) == "" {
			return model.ClassifyResult{Status: model.StatusHealthy, Confidence: confidenceQuickHealthy}
		}
		if indicator, found := firstMatch(lower, softIndicators); found {
			return model.ClassifyResult{
				Status:     model.StatusSuspicious,
				Confidence: scaleConfidence(lower, softIndicators, confidenceQuickSoftLow, confidenceQuickSoftHigh),
				Reason:     indicator,
			}
		}
		return model.ClassifyResult{
			Status:     model.StatusSuspicious,
			Confidence: confidenceQuickSoftLow,
			Reason:     "non-empty diagnostic output",
		}
	}

	if indicator, found := firstMatch(lower, hardIndicators); found {
		return model.ClassifyResult{
			Status:     model.StatusCorrupt,
			Confidence: scaleConfidence(lower, hardIndicators, confidenceQuickHardLow, confidenceQuickHardHigh),
			Reason:     indicator,
		}
	}

	if indicator, found := firstMatch(lower, softIndicators); found {
		return model.ClassifyResult{
			Status:     model.StatusSuspicious,
			Confidence: scaleConfidence(lower, softIndicators, confidenceQuickSoftLow, confidenceQuickSoftHigh),
			Reason:     indicator,
		}
	}

	return model.ClassifyResult{
		Status:     model.StatusSuspicious,
		Confidence: confidenceQuickSoftLow,
		Reason:     "non-zero exit with no recognized indicator",
	}
}

func classifyDeep(exitCode int, stderr string, timedOut bool) model.ClassifyResult {
	if timedOut {
		return model.ClassifyResult{
			Status:     model.StatusCorrupt,
			Confidence: confidenceDeepTimeoutCorrupt,
			Reason:     "deep scan timed out",
		}
	}

	lower := strings.ToLower(stderr)

	if exitCode == 0 && strings.TrimSpace(stderr) == "" {
		return model.ClassifyResult{Status: model.StatusHealthy, Confidence: confidenceDeepHealthy}
	}

	if indicator, found := firstMatch(lower, hardIndicators); found {
		return model.ClassifyResult{
			Status:     model.StatusCorrupt,
			Confidence: scaleConfidence(lower, hardIndicators, confidenceDeepCorruptLow, confidenceDeepCorruptHigh),
			Reason:     indicator,
		}
	}

	if indicator, found := firstMatch(lower, softIndicators); found {
		return model.ClassifyResult{
			Status:     model.StatusCorrupt,
			Confidence: scaleConfidence(lower, softIndicators, confidenceDeepCorruptLow, confidenceDeepCorruptHigh),
			Reason:     indicator,
		}
	}

	return model.ClassifyResult{
		Status:     model.StatusCorrupt,
		Confidence: confidenceDeepCorruptLow,
		Reason:     "non-zero exit or non-empty diagnostic output",
	}
}

// firstMatch returns the first indicator (in listed order) found as a
// substring of lower, which must already be lowercased.
func firstMatch(lower string, indicators []string) (string, bool) {
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			return ind, true
		}
	}
	return "", false
}

// scaleConfidence picks a value within [low, high] based on the matched
// indicator's position in the list, giving earlier (more specific)
// indicators the higher confidence.
func scaleConfidence(lower string, indicators []string, low, high float64) float64 {
	for i, ind := range indicators {
		if strings.Contains(lower, ind) {
			if len(indicators) <= 1 {
				return high
			}
			step := (high - low) / float64(len(indicators)-1)
			return high - step*float64(i)
		}
	}
	return low
}
