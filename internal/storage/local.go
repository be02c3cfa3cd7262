package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider keeps backup artifacts in a plain directory tree.
type LocalProvider struct {
	// RootPath is the directory where keys are materialized (e.g. "./data/backups")
	RootPath string
}

func NewLocalProvider(root string) *LocalProvider {
	// Ensure the root directory exists
	_ = os.MkdirAll(root, 0o755)
	return &LocalProvider{RootPath: root}
}

func (l *LocalProvider) List(prefix string) ([]string, error) {
	var keys []string

	err := filepath.Walk(l.RootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}

		// Convert OS path back to a slash-separated key
		rel, _ := filepath.Rel(l.RootPath, path)
		key := filepath.ToSlash(rel)

		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})

	return keys, err
}

func (l *LocalProvider) Get(key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(l.RootPath, filepath.FromSlash(key)))
}

func (l *LocalProvider) Put(key string, body io.Reader) error {
	path := filepath.Join(l.RootPath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, body)
	return err
}

func (l *LocalProvider) Delete(key string) error {
	return os.Remove(filepath.Join(l.RootPath, filepath.FromSlash(key)))
}
