package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	storage := NewLocal(t.TempDir())
	ctx := context.Background()

	if err := storage.Save(ctx, "site/index.html", strings.NewReader("<html></html>")); err != nil {
		t.Fatalf("saving artifact: %v", err)
	}

	reader, err := storage.Open(ctx, "site/index.html")
	if err != nil {
		t.Fatalf("opening artifact: %v", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("artifact content = %q, want %q", data, "<html></html>")
	}

	if err := storage.Delete(ctx, "site/index.html"); err != nil {
		t.Fatalf("deleting artifact: %v", err)
	}
	if _, err := storage.Open(ctx, "site/index.html"); !os.IsNotExist(err) {
		t.Errorf("expected not-exist after delete, got %v", err)
	}

	// Deleting a missing key is not an error.
	if err := storage.Delete(ctx, "site/index.html"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestDirUploadsEveryFile(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "assets"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"index.html":       "<html></html>",
		"listings.json":    "{}",
		"assets/style.css": "body {}",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(src, filepath.FromSlash(name)), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	dst := t.TempDir()
	storage := NewLocal(dst)
	if err := Dir(context.Background(), storage, src); err != nil {
		t.Fatalf("publishing directory: %v", err)
	}

	for name, content := range files {
		data, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		if err != nil {
			t.Fatalf("published file %s missing: %v", name, err)
		}
		if string(data) != content {
			t.Errorf("published %s = %q, want %q", name, data, content)
		}
	}
}

func TestDirIntoSameDirectory(t *testing.T) {
	// The default config points local publishing at the report directory
	// itself. Each artifact must survive being published onto its own path.
	dir := t.TempDir()
	files := map[string]string{
		"index.html":    "<html>dashboard</html>",
		"listings.json": `{"gumtree_9876543210":{}}`,
		"changes.json":  `{"newly_added":[]}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := Dir(context.Background(), NewLocal(dir), dir); err != nil {
		t.Fatalf("publishing directory onto itself: %v", err)
	}

	for name, content := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reading %s after publish: %v", name, err)
		}
		if string(data) != content {
			t.Errorf("%s = %q, want %q", name, data, content)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(files) {
		t.Errorf("directory has %d entries after publish, want %d", len(entries), len(files))
	}
}

func TestNewRejectsUnknownMethod(t *testing.T) {
	_, err := New(context.Background(), config.PublishConfig{Method: "ftp"})
	if !errors.Is(err, ErrUnknownPublisher) {
		t.Errorf("expected ErrUnknownPublisher, got %v", err)
	}
}

func TestNewDefaultsToLocal(t *testing.T) {
	storage, err := New(context.Background(), config.PublishConfig{})
	if err != nil {
		t.Fatalf("building default publisher: %v", err)
	}
	if _, ok := storage.(*LocalStorage); !ok {
		t.Errorf("default publisher is %T, want *LocalStorage", storage)
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PublishConfig
		key  string
		want string
		ok   bool
	}{
		{
			name: "local has no public url",
			cfg:  config.PublishConfig{Method: "local"},
			key:  "index.html",
		},
		{
			name: "s3 without public url",
			cfg:  config.PublishConfig{Method: "s3"},
			key:  "index.html",
		},
		{
			name: "s3 with public url",
			cfg: config.PublishConfig{
				Method: "s3",
				S3:     config.PublishS3Config{PublicURL: "https://listings.example.net"},
			},
			key:  "index.html",
			want: "https://listings.example.net/index.html",
			ok:   true,
		},
		{
			name: "s3 prefix joins into the path",
			cfg: config.PublishConfig{
				Method: "s3",
				S3: config.PublishS3Config{
					PublicURL: "https://cdn.example.net/site",
					Prefix:    "/tracker/",
				},
			},
			key:  "/listings.json",
			want: "https://cdn.example.net/site/tracker/listings.json",
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PublicURL(tt.cfg, tt.key)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("url = %q, want %q", got, tt.want)
			}
		})
	}
}
