//go:build !windows

package discovery

import (
	"os"
	"strconv"
	"syscall"
)

// directoryIdentity returns a stable device:inode key for cycle detection
// across symlinked directories.
func directoryIdentity(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "", false
	}
	return strconv.FormatUint(uint64(stat.Dev), 10) + ":" + strconv.FormatUint(stat.Ino, 10), true
}
