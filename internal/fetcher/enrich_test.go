package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestEnricherFetchDisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if !strings.HasSuffix(target, "/station/42") {
			t.Fatalf("relay target = %q", target)
		}
		fmt.Fprint(w, `<html><body><p class="fr-h2 fr-mb-1w">  TOTAL Access Lille  </p></body></html>`)
	}))
	defer srv.Close()

	e := NewEnricher(EnrichOptions{
		RelayURL:       srv.URL + "/?url=",
		StationPageURL: "https://example.test/station/",
		Timeout:        time.Second,
	}, noopLogger())

	name, ok := e.FetchDisplayName(context.Background(), 42)
	if !ok {
		t.Fatal("name should be found")
	}
	if name != "TOTAL Access Lille" {
		t.Fatalf("name = %q", name)
	}
}

func TestEnricherNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Station</h1></body></html>`)
	}))
	defer srv.Close()

	e := NewEnricher(EnrichOptions{RelayURL: srv.URL + "/?url=", Timeout: time.Second}, noopLogger())
	if _, ok := e.FetchDisplayName(context.Background(), 42); ok {
		t.Fatal("missing heading should report absence")
	}
}

func TestEnricherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewEnricher(EnrichOptions{RelayURL: srv.URL + "/?url=", Timeout: time.Second}, noopLogger())
	if _, ok := e.FetchDisplayName(context.Background(), 42); ok {
		t.Fatal("HTTP error should report absence")
	}
}

func TestEnricherUnreachable(t *testing.T) {
	// Closed server: the request fails at the dial. Failure must stay
	// silent absence, never an error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	e := NewEnricher(EnrichOptions{RelayURL: base + "/?url=", Timeout: time.Second}, noopLogger())
	if _, ok := e.FetchDisplayName(context.Background(), 42); ok {
		t.Fatal("unreachable relay should report absence")
	}
}

func TestEnricherEscapesTarget(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		fmt.Fprint(w, `<p class="fr-h2">Esso Express</p>`)
	}))
	defer srv.Close()

	e := NewEnricher(EnrichOptions{
		RelayURL:       srv.URL + "/?url=",
		StationPageURL: "https://example.test/station/",
		Timeout:        time.Second,
	}, noopLogger())

	if _, ok := e.FetchDisplayName(context.Background(), 7); !ok {
		t.Fatal("lookup should succeed")
	}
	want := "url=" + url.QueryEscape("https://example.test/station/7")
	if rawQuery != want {
		t.Fatalf("target should be query-escaped: %q != %q", rawQuery, want)
	}
}
