package publish

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

type LocalStorage struct {
	baseDir string
}

func NewLocal(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

func (l *LocalStorage) Save(_ context.Context, key string, body io.Reader) error {
	path := l.pathForKey(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	// Write through a temp file and rename. The destination may be the very
	// file body is reading from: the default config publishes the report
	// directory into itself, and truncating in place would wipe the artifact
	// before the copy reads it.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".publish-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (l *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(l.pathForKey(key))
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	path := l.pathForKey(key)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func (l *LocalStorage) pathForKey(key string) string {
	return filepath.Join(l.baseDir, filepath.FromSlash(key))
}
