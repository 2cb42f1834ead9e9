package deck

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
)

// Writer replaces the output artifact atomically: readers see either the old
// or the new deck, never a partial one.
type Writer struct {
	path string
	lock *flock.Flock
}

// NewWriter creates a Writer for path. A sibling "<path>.lock" file guards
// against two processes writing the same deck.
func NewWriter(path string) (*Writer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid output path").
			WithContext("output", path).
			Build()
	}
	return &Writer{path: abs, lock: flock.New(abs + ".lock")}, nil
}

// Path returns the absolute output path.
func (w *Writer) Path() string { return w.path }

// Write replaces the output with content.
func (w *Writer) Write(content string) error {
	if err := w.lock.Lock(); err != nil {
		return w.fail(err, "failed to lock output")
	}
	defer func() { _ = w.lock.Unlock() }()

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return w.fail(err, "failed to create temporary output")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return w.fail(err, "failed to write output")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return w.fail(err, "failed to flush output")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return w.fail(err, "failed to close output")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return w.fail(err, "failed to set output permissions")
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		cleanup()
		return w.fail(err, "failed to replace output")
	}
	return nil
}

func (w *Writer) fail(err error, msg string) error {
	return ferrors.WrapError(err, ferrors.CategoryBuild, msg).
		WithContext("output", w.path).
		Build()
}
