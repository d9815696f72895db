//go:build windows

package discovery

import "path/filepath"

// directoryIdentity falls back to the resolved absolute path on Windows,
// where inode identities are not portably exposed via os.FileInfo.
func directoryIdentity(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	return abs, true
}
