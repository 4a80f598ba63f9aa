package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return v
}

// feedServer answers like the records endpoint: it parses the ids out of
// the where clause and returns one minimal record per id.
func feedServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	var mu sync.Mutex
	var wheres []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		where := r.URL.Query().Get("where")
		mu.Lock()
		wheres = append(wheres, where)
		mu.Unlock()

		inner := strings.TrimSuffix(strings.TrimPrefix(where, "id in ("), ")")
		var results []map[string]any
		for _, part := range strings.Split(inner, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				continue
			}
			results = append(results, map[string]any{
				"id":          id,
				"ville":       "Testville",
				"gazole_prix": "1.859",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	t.Cleanup(srv.Close)
	return srv, &wheres
}

func TestFetchByIDsBatches(t *testing.T) {
	srv, wheres := feedServer(t)

	g := NewGouv(GouvOptions{BaseURL: srv.URL, BatchSize: 3, Timeout: time.Second}, noopLogger())

	ids := []int64{1, 2, 3, 4, 5, 6, 7}
	stations, err := g.FetchByIDs(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchByIDs: %v", err)
	}
	if len(stations) != len(ids) {
		t.Fatalf("expected %d stations, got %d", len(ids), len(stations))
	}
	if len(*wheres) != 3 {
		t.Fatalf("expected 3 batch requests, got %d: %v", len(*wheres), *wheres)
	}

	seen := map[int64]bool{}
	for _, station := range stations {
		seen[station.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Fatalf("station %d missing from results", id)
		}
	}
}

func TestFetchByIDsEmpty(t *testing.T) {
	srv, wheres := feedServer(t)

	g := NewGouv(GouvOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	stations, err := g.FetchByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty ids should not fail: %v", err)
	}
	if stations != nil {
		t.Fatalf("empty ids should yield no stations, got %v", stations)
	}
	if len(*wheres) != 0 {
		t.Fatal("empty ids should not touch the network")
	}
}

func TestFetchByIDsFailingBatchAborts(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer srv.Close()

	g := NewGouv(GouvOptions{BaseURL: srv.URL, BatchSize: 2, Timeout: time.Second}, noopLogger())

	if _, err := g.FetchByIDs(context.Background(), []int64{1, 2, 3, 4}); err == nil {
		t.Fatal("a failing batch should fail the whole call")
	} else if !errors.Is(err, ErrRemote) {
		t.Fatalf("error should wrap ErrRemote, got %v", err)
	}
}

func TestSearchBlankQuery(t *testing.T) {
	srv, wheres := feedServer(t)

	g := NewGouv(GouvOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	stations, err := g.Search(context.Background(), "   ", SearchByCity)
	if err != nil {
		t.Fatalf("blank query should not fail: %v", err)
	}
	if stations != nil {
		t.Fatalf("blank query should yield nothing, got %v", stations)
	}
	if len(*wheres) != 0 {
		t.Fatal("blank query should not touch the network")
	}
}

func TestSearchWhereClause(t *testing.T) {
	srv, wheres := feedServer(t)
	g := NewGouv(GouvOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())

	if _, err := g.Search(context.Background(), "59000", SearchByPostalCode); err != nil {
		t.Fatalf("Search by cp: %v", err)
	}
	if _, err := g.Search(context.Background(), "Lille", SearchByCity); err != nil {
		t.Fatalf("Search by city: %v", err)
	}

	if (*wheres)[0] != `cp="59000"` {
		t.Fatalf("postal code where = %q", (*wheres)[0])
	}
	if (*wheres)[1] != `search(ville,"Lille")` {
		t.Fatalf("city where = %q", (*wheres)[1])
	}
}

func TestFetchByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		where := r.URL.Query().Get("where")
		if where == fmt.Sprintf("id=%d", 42) {
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
				{"id": 42, "ville": "Lyon"},
			}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer srv.Close()

	g := NewGouv(GouvOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())

	station, found, err := g.FetchByID(context.Background(), 42)
	if err != nil || !found {
		t.Fatalf("FetchByID(42) = %v, %v, %v", station, found, err)
	}
	if station.City != "Lyon" {
		t.Fatalf("city = %q", station.City)
	}

	_, found, err = g.FetchByID(context.Background(), 43)
	if err != nil {
		t.Fatalf("unknown id should not fail: %v", err)
	}
	if found {
		t.Fatal("unknown id should report absence")
	}
}

func TestFetchRecordsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid where clause", "error_code": "ODSQLError"})
	}))
	defer srv.Close()

	g := NewGouv(GouvOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())

	_, err := g.Search(context.Background(), "Lille", SearchByCity)
	if err == nil {
		t.Fatal("HTTP 400 should fail")
	}
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("error should wrap ErrRemote, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid where clause") {
		t.Fatalf("feed message should surface, got %v", err)
	}
}
