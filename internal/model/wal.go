package model

// WALHeader is the first line written to a resume log. The (Root, Mode,
// Extensions) triple must match the current run's parameters for the log
// to be considered resumable.
type WALHeader struct {
	Version    int      `json:"v"`
	Mode       ScanMode `json:"mode"`
	Root       string   `json:"root"`
	Extensions []string `json:"exts"`
	ExtsHash   string   `json:"exts_hash"`
	StartedAt  int64    `json:"started_at"`
}

// WALEntry is one appended ScanResult line.
type WALEntry struct {
	Path       string  `json:"path"`
	Status     Status  `json:"status"`
	Depth      ScanDepth `json:"depth"`
	Elapsed    float64 `json:"elapsed"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// WALFooter marks a resume log as terminal.
type WALFooter struct {
	CompletedAt int64      `json:"completed_at"`
	Totals      WALTotals  `json:"totals"`
	ScanTime    float64    `json:"scan_time"`
}

// WALTotals is the per-status count recorded in the footer.
type WALTotals struct {
	Healthy    int `json:"healthy"`
	Corrupt    int `json:"corrupt"`
	Suspicious int `json:"suspicious"`
	Error      int `json:"error"`
}

// CurrentWALVersion is the schema version written by this build.
const CurrentWALVersion = 1
