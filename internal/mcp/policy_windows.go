//go:build windows

package mcp

import (
	"os"
)

// openPolicyFile opens the policy file on Windows, refusing symlinks with
// an Lstat check since there is no O_NOFOLLOW.
func openPolicyFile(path string) (*os.File, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, ErrPolicySymlink
	}
	return os.Open(path)
}

// checkFileOwnership on Windows is a no-op; ownership is governed by ACLs.
func checkFileOwnership(_ os.FileInfo) error {
	return nil
}
