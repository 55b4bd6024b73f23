package patchset

import "os"

// OSReader reads file bytes straight off the filesystem. Tests may supply
// a fake Reader to exercise Collect's failure path without touching disk.
type OSReader struct{}

// ReadFile reads the file at path.
func (OSReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
