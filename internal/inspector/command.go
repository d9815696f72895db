package inspector

import (
	"strconv"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

// InspectorCommand is the argument list the Driver will execute, built from
// a depth→template map rather than hand-assembled per call site.
type InspectorCommand struct {
	Args []string
}

// BuildCommand constructs the ffmpeg argument list for one (path, depth)
// job. quickDurationSeconds bounds a quick-depth scan to its first N
// seconds; deep and full depths read the file in full, relying on the
// Driver's timeout (deep) or no timeout at all (full) to bound wall time.
func BuildCommand(path string, depth model.ScanDepth, quickDurationSeconds int) InspectorCommand {
	args := []string{"-v", "error", "-nostdin"}

	if depth == model.DepthQuick {
		args = append(args, "-t", strconv.Itoa(quickDurationSeconds))
	}

	args = append(args, "-i", path, "-f", "null", "-")

	return InspectorCommand{Args: args}
}
