package files

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoInput is returned by Find when no file matches. It is not a failure
// of the run, there is just nothing to do.
var ErrNoInput = errors.New("no input files")

// Find returns the names of all regular files directly in dir that end
// with suffix and do not end with any of the exclude suffixes. Names are
// returned in the order os.ReadDir lists them.
func Find(dir, suffix string, exclude ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %q", dir)
	}

	var names []string
Entries:
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		for _, ex := range exclude {
			if strings.HasSuffix(e.Name(), ex) {
				continue Entries
			}
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, ErrNoInput
	}
	return names, nil
}

// EnsureDir creates dir (with parents) if it does not exist yet.
func EnsureDir(dir string) (created bool, err error) {
	fi, err := os.Stat(dir)
	if err == nil {
		if !fi.IsDir() {
			return false, errors.Errorf("%q exists and is not a directory", dir)
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, errors.Wrapf(err, "checking %q", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, errors.Wrapf(err, "creating %q", dir)
	}
	return true, nil
}
