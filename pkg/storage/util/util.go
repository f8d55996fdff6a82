package util

import (
	"os"

	"multicam-logger/pkg/storage/consts"
)

// MkdirAll creates every dir; existing directories are not an error.
func MkdirAll(dirs ...string) error {
	for _, d := range dirs {
		err := os.MkdirAll(d, consts.DefaultDirPerm)
		if err != nil {
			return err
		}
	}

	return nil
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
