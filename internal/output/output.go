// Package output names and writes translated presentations without ever
// overwriting an existing file.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// maxAttempts bounds the " (n)" suffix search.
const maxAttempts = 10000

// Name returns "<base>_<suffix>.pptx" for the source path.
func Name(source, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if suffix == "" {
		return base + ".pptx"
	}
	return base + "_" + suffix + ".pptx"
}

// UniquePath returns a path in dir for name that does not exist yet, trying
// "name.pptx", then "name (2).pptx", "name (3).pptx" and so on.
func UniquePath(fs afero.Fs, dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; n <= maxAttempts; n++ {
		candidate := filepath.Join(dir, name)
		if n > 1 {
			candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		}
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

// Writer creates output files on a filesystem.
type Writer struct {
	fs  afero.Fs
	dir string
}

// NewWriter returns a Writer that places files in dir.
func NewWriter(fs afero.Fs, dir string) *Writer {
	return &Writer{fs: fs, dir: dir}
}

// Create makes the directory if needed and writes a new file named after
// source. write receives the open file. The chosen path is returned. A file
// that appears between the name check and creation makes Create move on to
// the next name.
func (w *Writer) Create(source, suffix string, write func(io.Writer) error) (string, error) {
	if err := w.fs.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	name := Name(source, suffix)
	for {
		path, err := UniquePath(w.fs, w.dir, name)
		if err != nil {
			return "", err
		}
		f, err := w.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := write(f); err != nil {
			f.Close()
			_ = w.fs.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close %s: %w", path, err)
		}
		return path, nil
	}
}
