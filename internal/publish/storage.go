// Package publish ships generated dashboard artifacts to their hosting
// location, either a local directory served by the tracker itself or an
// S3 bucket used for static hosting.
package publish

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
)

var ErrUnknownPublisher = errors.New("unknown publish method")

type Storage interface {
	Save(ctx context.Context, key string, body io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Dir uploads every regular file under dir, keyed by its slash-separated
// path relative to dir. Used after report generation to push the whole
// artifact set in one pass.
func Dir(ctx context.Context, storage Storage, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		file, err := os.Open(p)
		if err != nil {
			return err
		}
		defer file.Close()

		return storage.Save(ctx, filepath.ToSlash(rel), file)
	})
}

// PublicURL returns the public URL for a published key when the configured
// method exposes one. It returns false for local publishing and for S3
// configs without a public URL.
func PublicURL(cfg config.PublishConfig, key string) (string, bool) {
	method := strings.ToLower(strings.TrimSpace(cfg.Method))
	if method != "s3" {
		return "", false
	}
	base := strings.TrimSpace(cfg.S3.PublicURL)
	if base == "" {
		return "", false
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	key = strings.TrimLeft(key, "/")
	prefix := strings.Trim(cfg.S3.Prefix, "/")
	if prefix != "" {
		key = path.Join(prefix, key)
	}
	parsed.Path = path.Join(parsed.Path, key)
	return parsed.String(), true
}
