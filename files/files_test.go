package files

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := ioutil.WriteFile(filepath.Join(dir, n), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.laz", "a.laz", "a.copc.laz", "notes.txt", "c.LAZ")
	if err := os.Mkdir(filepath.Join(dir, "sub.laz"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := Find(dir, ".laz")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a.copc.laz", "a.laz", "b.laz"}, names); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	names, err = Find(dir, ".laz", ".copc.laz")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a.laz", "b.laz"}, names); diff != "" {
		t.Errorf("exclude (-want +got):\n%s", diff)
	}

	names, err = Find(dir, ".copc.laz")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a.copc.laz"}, names); diff != "" {
		t.Errorf("copc (-want +got):\n%s", diff)
	}
}

func TestFindNoInput(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "readme.md")

	names, err := Find(dir, ".laz")
	if err != ErrNoInput {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
	if names != nil {
		t.Error(names)
	}
}

func TestFindMissingDir(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "missing"), ".laz")
	if err == nil || err == ErrNoInput {
		t.Fatalf("unexpected error %v", err)
	}
	if !os.IsNotExist(errors.Cause(err)) {
		t.Errorf("expected not-exist cause, got %v", err)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")

	created, err := EnsureDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("expected dir to be created")
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatal(fi, err)
	}

	created, err = EnsureDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("dir created twice")
	}

	fname := filepath.Join(t.TempDir(), "file")
	touch(t, filepath.Dir(fname), "file")
	if _, err := EnsureDir(fname); err == nil {
		t.Error("expected error for regular file")
	}
}
