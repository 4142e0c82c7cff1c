package weathergov

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetRejectsForeignHost(t *testing.T) {
	client := NewClientWithBaseURL("https://api.weather.gov")

	_, err := client.Get(context.Background(), "https://evil.example.com/forecast")
	if err == nil {
		t.Fatal("expected error for foreign host")
	}
	if !strings.Contains(err.Error(), "not allowed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetSetsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/geo+json" {
			t.Errorf("missing Accept header, got %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)

	body, err := client.Get(context.Background(), server.URL+"/points/39.7,-104.9")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if body != `{"ok":true}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestGetNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)

	_, err := client.Get(context.Background(), server.URL+"/points/0,0")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("unexpected error: %v", err)
	}
}
