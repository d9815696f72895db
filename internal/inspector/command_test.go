package inspector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

func TestBuildCommandQuick(t *testing.T) {
	cmd := BuildCommand("/videos/a.mkv", model.DepthQuick, 30)

	assert.Contains(t, cmd.Args, "-t")
	assert.Contains(t, cmd.Args, "30")
	assert.Contains(t, cmd.Args, "/videos/a.mkv")
	assert.Contains(t, cmd.Args, "null")
}

func TestBuildCommandDeepHasNoDurationLimit(t *testing.T) {
	cmd := BuildCommand("/videos/a.mkv", model.DepthDeep, 30)

	assert.NotContains(t, cmd.Args, "-t")
	assert.Contains(t, cmd.Args, "/videos/a.mkv")
}

func TestBuildCommandFullHasNoDurationLimit(t *testing.T) {
	cmd := BuildCommand("/videos/a.mkv", model.DepthFull, 30)

	assert.NotContains(t, cmd.Args, "-t")
}
