package main

import (
	"os"
)

// osFileSystem implements config.FileSystem over the real filesystem, the
// only place this module touches local (non-repository) files: the option
// config file and its conf.d include directory.
type osFileSystem struct{}

func (osFileSystem) ReadFile(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (osFileSystem) ListDir(path string) ([]string, bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, true, nil
}
