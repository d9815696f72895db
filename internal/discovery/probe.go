package discovery

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"
)

// ffprobeTimeout bounds the content-probe invocation so one unreadable file
// cannot stall discovery indefinitely.
const ffprobeTimeout = 10 * time.Second

type ffprobeStreams struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// NewFFprobeContentProbe builds a ContentProbeFunc that asks ffprobe whether
// a candidate file actually demuxes a video stream, catching mislabeled
// extensions that a name-only filter would accept. binaryPath falls back to
// "ffprobe" on PATH when empty.
func NewFFprobeContentProbe(binaryPath string) ContentProbeFunc {
	if binaryPath == "" {
		binaryPath = "ffprobe"
	}
	return func(path string) (bool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), ffprobeTimeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, binaryPath,
			"-v", "error",
			"-print_format", "json",
			"-show_entries", "stream=codec_type",
			path,
		)
		out, err := cmd.Output()
		if err != nil {
			return false, err
		}

		var parsed ffprobeStreams
		if err := json.Unmarshal(out, &parsed); err != nil {
			return false, err
		}

		for _, s := range parsed.Streams {
			if s.CodecType == "video" {
				return true, nil
			}
		}
		return false, nil
	}
}
