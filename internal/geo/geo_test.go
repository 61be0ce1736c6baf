package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNominatimSearch(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"display_name":"Main Square 1, Old Town","lat":"46.0511","lon":"14.5051","type":"square"},
			{"display_name":"broken","lat":"not-a-number","lon":"14.0","type":"square"}
		]`))
	}))
	defer srv.Close()

	client := NewNominatimClient(srv.URL, "kbadmin-test/1.0")
	candidates, err := client.Search(context.Background(), "Main Square 1", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotUA != "kbadmin-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotQuery != "Main Square 1" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1 (unparsable row dropped)", len(candidates))
	}
	c := candidates[0]
	if c.DisplayName != "Main Square 1, Old Town" || c.Lat != 46.0511 || c.Lng != 14.5051 {
		t.Errorf("candidate = %+v", c)
	}
	if c.Provider != ProviderNominatim || c.Kind != "square" {
		t.Errorf("provenance = %+v", c)
	}
}

func TestNominatimReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("lat") != "46.0511" {
			t.Errorf("lat = %q", r.URL.Query().Get("lat"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name":"Main Square 1, Old Town","lat":"46.0511","lon":"14.5051","type":"square"}`))
	}))
	defer srv.Close()

	client := NewNominatimClient(srv.URL, "kbadmin-test/1.0")
	cand, err := client.Reverse(context.Background(), 46.0511, 14.5051)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if cand == nil || cand.DisplayName != "Main Square 1, Old Town" {
		t.Fatalf("candidate = %+v", cand)
	}
}

func TestNominatimErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bandwidth limit exceeded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewNominatimClient(srv.URL, "kbadmin-test/1.0")
	if _, err := client.Search(context.Background(), "anything", 1); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestPhotonSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features":[
			{"geometry":{"coordinates":[14.5051,46.0511]},
			 "properties":{"name":"Main Square","city":"Old Town","country":"Slovenia","osm_value":"square"}}
		]}`))
	}))
	defer srv.Close()

	client := NewPhotonClient(srv.URL)
	candidates, err := client.Search(context.Background(), "Main Square", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.DisplayName != "Main Square, Old Town, Slovenia" {
		t.Errorf("display name = %q", c.DisplayName)
	}
	// GeoJSON orders coordinates lon, lat.
	if c.Lat != 46.0511 || c.Lng != 14.5051 {
		t.Errorf("coordinates swapped: %+v", c)
	}
	if c.Provider != ProviderPhoton {
		t.Errorf("provider = %q", c.Provider)
	}
}

func TestPhotonReverseEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	client := NewPhotonClient(srv.URL)
	cand, err := client.Reverse(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if cand != nil {
		t.Fatalf("expected nil candidate, got %+v", cand)
	}
}
