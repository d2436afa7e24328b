// Package staging manages the directory where PDFs wait to be ingested.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is one staged document.
type File struct {
	Name    string
	Path    string
	Size    int64
	ModTime int64
}

// Area is a staging directory.
type Area struct {
	Dir string
}

func New(dir string) *Area { return &Area{Dir: dir} }

// Ensure creates the staging directory when missing.
func (a *Area) Ensure() error {
	return os.MkdirAll(a.Dir, 0o755)
}

// List returns the regular files in the staging directory sorted by name.
// Subdirectories such as the text cache are ignored.
func (a *Area) List() ([]File, error) {
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []File
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, File{
			Name:    e.Name(),
			Path:    filepath.Join(a.Dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Add copies src into the staging directory and returns the staged path.
// Only .pdf files are accepted; an existing file with the same name is
// replaced.
func (a *Area) Add(src string) (string, error) {
	name := filepath.Base(src)
	if !strings.HasSuffix(name, ".pdf") {
		return "", fmt.Errorf("%s: only .pdf files can be staged", src)
	}
	if err := a.Ensure(); err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := filepath.Join(a.Dir, name)
	tmp, err := os.CreateTemp(a.Dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dst, nil
}

// Remove deletes one staged file by name.
func (a *Area) Remove(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid staged file name %q", name)
	}
	if err := os.Remove(filepath.Join(a.Dir, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s is not staged: %w", name, err)
		}
		return err
	}
	return nil
}

// Clear deletes the staging directory with everything in it and recreates
// it empty.
func (a *Area) Clear() error {
	if err := os.RemoveAll(a.Dir); err != nil {
		return err
	}
	return a.Ensure()
}
