package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
)

func testClient(timeout time.Duration) *Client {
	return New(config.FetchConfig{
		UserAgent: "tracker-test/1.0",
		Timeout:   timeout,
	})
}

func TestGetSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	body, err := testClient(5 * time.Second).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !strings.Contains(string(body), "ok") {
		t.Errorf("unexpected body %q", body)
	}
	if gotUA != "tracker-test/1.0" {
		t.Errorf("user agent not sent, got %q", gotUA)
	}
}

func TestGetRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := testClient(5 * time.Second).Get(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestGetHonoursContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := testClient(5 * time.Second).Get(ctx, srv.URL); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestGetSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(config.FetchConfig{
		UserAgent: "tracker-test/1.0",
		Timeout:   5 * time.Second,
		SleepMin:  50 * time.Millisecond,
		SleepMax:  50 * time.Millisecond,
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), srv.URL); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("three requests finished in %v, expected spacing of at least 100ms", elapsed)
	}
}
