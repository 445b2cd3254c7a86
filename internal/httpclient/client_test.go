package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestDoSetsDefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := New(Config{})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := c.Do(req); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotUA != "fetchctl/dev" {
		t.Fatalf("User-Agent = %q, want fetchctl/dev", gotUA)
	}
}

func TestDoAppliesConfiguredUserAgentAndHeaders(t *testing.T) {
	var gotUA, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotHeader = r.Header.Get("X-Custom")
	}))
	defer srv.Close()

	c := New(Config{
		UserAgent: "fetchctl-test/1.0",
		Headers:   map[string]string{"X-Custom": "value"},
	})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := c.Do(req); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotUA != "fetchctl-test/1.0" {
		t.Fatalf("User-Agent = %q, want fetchctl-test/1.0", gotUA)
	}
	if gotHeader != "value" {
		t.Fatalf("X-Custom = %q, want value", gotHeader)
	}
}

func TestDoAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := New(Config{
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret", TokenType: "Bearer"}),
	})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := c.Do(req); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q, want %q", gotAuth, "Bearer secret")
	}
}

func TestDoPreservesRequestSpecificHeaders(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
	}))
	defer srv.Close()

	c := New(Config{})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Range", "bytes=0-99")
	if _, err := c.Do(req); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotRange != "bytes=0-99" {
		t.Fatalf("Range = %q, want bytes=0-99", gotRange)
	}
}

func TestNewFillsTimeoutDefaults(t *testing.T) {
	c := New(Config{})
	if c.inner.Timeout != 60*time.Second {
		t.Fatalf("Timeout = %v, want 60s", c.inner.Timeout)
	}
}
