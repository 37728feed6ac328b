package util

import (
	"fmt"
	"os"
)

// CheckDirectory reports whether path exists and whether it is a directory.
func CheckDirectory(path string) (exists bool, isDir bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, info.IsDir(), nil
}

// EnsureDir creates path if it does not exist. It fails if path exists
// and is not a directory.
func EnsureDir(path string) error {
	exists, isDir, err := CheckDirectory(path)
	if err != nil {
		return err
	}
	if exists && !isDir {
		return fmt.Errorf("%s exists and is not a directory", path)
	}
	if !exists {
		return os.MkdirAll(path, 0o755)
	}
	return nil
}
