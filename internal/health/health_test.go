package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckDirectory_ok(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/stats" {
			t.Errorf("probed %s, want /json/stats", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	if err := CheckDirectory(context.Background(), srv.URL); err != nil {
		t.Fatalf("CheckDirectory: %v", err)
	}
}

func TestCheckDirectory_badStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	if err := CheckDirectory(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestCheckDirectory_emptyEndpoint(t *testing.T) {
	if err := CheckDirectory(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}
